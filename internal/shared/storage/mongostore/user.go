package mongostore

import (
	"context"
	"time"

	"vaxcert/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}

// GetUserRefs 批量查询用户展示字段
// UserRef 的 bson tag 只覆盖 _id/email/name，解码时其余字段自然丢弃
func (s *Store) GetUserRefs(ctx context.Context, ids []string) (map[string]*model.UserRef, error) {
	refs := make(map[string]*model.UserRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}

	in := make(bson.A, len(ids))
	for i, id := range ids {
		in[i] = id
	}
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: in}}}}
	users, err := findMany[model.UserRef](ctx, s.col(ColUsers), filter)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		refs[u.ID] = u
	}
	return refs, nil
}

func (s *Store) UpdateUserRewardPoints(ctx context.Context, id string, points int) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "reward_points", Value: points},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) PromoteUserToAdmin(ctx context.Context, id, name, passwordHash string) error {
	update := bson.D{
		{Key: "role", Value: model.UserRoleAdmin},
		{Key: "updated_at", Value: time.Now()},
	}
	if name != "" {
		update = append(update, bson.E{Key: "name", Value: name})
	}
	if passwordHash != "" {
		update = append(update, bson.E{Key: "password_hash", Value: passwordHash})
	}
	return updateFields(ctx, s.col(ColUsers), id, update)
}

func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.User](ctx, s.col(ColUsers), bson.D{}, opts)
}
