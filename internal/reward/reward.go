// Package reward 负责奖励积分的计算与对账。
//
// 积分规则:每张已通过审核的疫苗接种证明可获得固定积分。积分不在审核时增量
// 累加,而是按需由已验证证明数量重新推导,保证任何时刻积分与证明状态一致。
package reward

import (
	"context"
	"fmt"
	"log"

	"vaxcert/internal/shared/model"
	"vaxcert/internal/shared/storage"
)

// PointsPerVerified 每张已验证证明对应的积分数。
const PointsPerVerified = 100

// Store 对账所需的最小存储接口。
type Store interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	CountVerifiedByUser(ctx context.Context, userID string) (int64, error)
	UpdateUserRewardPoints(ctx context.Context, id string, points int) error
}

// Recorder 对账结果指标记录接口,可为 nil
type Recorder interface {
	RecordRewardReconcile(outcome string)
}

// Service 奖励积分服务。
type Service struct {
	store   Store
	metrics Recorder
}

// NewService 创建奖励积分服务。
func NewService(store Store, metrics Recorder) *Service {
	return &Service{store: store, metrics: metrics}
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRewardReconcile(outcome)
	}
}

// ReconcileUser 核对单个用户的积分并在偏差时覆写为推导值,返回当前积分。
// 幂等:重复调用不改变结果。
func (s *Service) ReconcileUser(ctx context.Context, userID string) (int, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return 0, storage.ErrNotFound
	}

	count, err := s.store.CountVerifiedByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count verified certificates: %w", err)
	}

	expected := int(count) * PointsPerVerified
	if user.RewardPoints != nil && *user.RewardPoints == expected {
		s.record("unchanged")
		return expected, nil
	}
	if err := s.store.UpdateUserRewardPoints(ctx, userID, expected); err != nil {
		return 0, fmt.Errorf("update reward points: %w", err)
	}
	if user.RewardPoints == nil {
		s.record("initialized")
	} else {
		s.record("recalculated")
	}
	return expected, nil
}

// Summary 批量对账的结果汇总。
type Summary struct {
	Processed    int // 已处理用户数
	Initialized  int // 首次写入积分的用户数
	Recalculated int // 积分被修正的用户数
	Unchanged    int // 积分已一致的用户数
}

// ReconcileAll 遍历全部用户逐一对账,单个用户失败不中断整体流程。
func (s *Service) ReconcileAll(ctx context.Context) (*Summary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	summary := &Summary{}
	for _, user := range users {
		count, err := s.store.CountVerifiedByUser(ctx, user.ID)
		if err != nil {
			log.Printf("[reward] count verified for user %s failed: %v", user.ID, err)
			continue
		}
		expected := int(count) * PointsPerVerified

		switch {
		case user.RewardPoints == nil:
			if err := s.store.UpdateUserRewardPoints(ctx, user.ID, expected); err != nil {
				log.Printf("[reward] initialize points for user %s failed: %v", user.ID, err)
				continue
			}
			summary.Initialized++
		case *user.RewardPoints != expected:
			if err := s.store.UpdateUserRewardPoints(ctx, user.ID, expected); err != nil {
				log.Printf("[reward] recalculate points for user %s failed: %v", user.ID, err)
				continue
			}
			summary.Recalculated++
		default:
			summary.Unchanged++
		}
		summary.Processed++
	}
	return summary, nil
}
