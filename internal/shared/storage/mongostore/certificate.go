package mongostore

import (
	"context"
	"time"

	"vaxcert/internal/shared/model"
	"vaxcert/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// CertificateStore
// ============================================================================

func (s *Store) CreateCertificate(ctx context.Context, cert *model.Certificate) error {
	return insertOne(ctx, s.col(ColCertificates), cert)
}

func (s *Store) GetCertificate(ctx context.Context, id string) (*model.Certificate, error) {
	return findOne[model.Certificate](ctx, s.col(ColCertificates), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListCertificatesByUser(ctx context.Context, userID string) ([]*model.Certificate, error) {
	filter := bson.D{{Key: "user_id", Value: userID}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Certificate](ctx, s.col(ColCertificates), filter, opts)
}

func (s *Store) ListCertificates(ctx context.Context, status string, limit, offset int) ([]*model.Certificate, int, error) {
	filter := bson.D{}
	if status != "" {
		filter = append(filter, bson.E{Key: "status", Value: status})
	}

	total, err := s.col(ColCertificates).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapError(err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	certs, err := findMany[model.Certificate](ctx, s.col(ColCertificates), filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return certs, int(total), nil
}

func (s *Store) CountCertificates(ctx context.Context, status string) (int64, error) {
	filter := bson.D{}
	if status != "" {
		filter = append(filter, bson.E{Key: "status", Value: status})
	}
	n, err := s.col(ColCertificates).CountDocuments(ctx, filter)
	return n, wrapError(err)
}

func (s *Store) CountVerifiedByUser(ctx context.Context, userID string) (int64, error) {
	filter := bson.D{
		{Key: "user_id", Value: userID},
		{Key: "status", Value: model.CertificateStatusVerified},
	}
	n, err := s.col(ColCertificates).CountDocuments(ctx, filter)
	return n, wrapError(err)
}

// SetCertificateReview 落盘一次审核结论
// verified 清除 rejection_reason（$unset），rejected 写入 reason。
// 单文档读改写，并发冲突 last-writer-wins。
func (s *Store) SetCertificateReview(ctx context.Context, id string, status model.CertificateStatus, verifiedBy string, verifiedAt time.Time, reason string) error {
	set := bson.D{
		{Key: "status", Value: status},
		{Key: "verified_by", Value: verifiedBy},
		{Key: "verified_at", Value: verifiedAt},
		{Key: "updated_at", Value: time.Now()},
	}
	update := bson.D{}
	if status == model.CertificateStatusRejected {
		set = append(set, bson.E{Key: "rejection_reason", Value: reason})
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "rejection_reason", Value: ""}}})
	}
	update = append(update, bson.E{Key: "$set", Value: set})

	res, err := s.col(ColCertificates).UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
