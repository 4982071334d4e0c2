// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/
//   - 初始化时通过依赖注入传入实现（进程启动时打开，收到关闭信号时关闭）
package storage

import (
	"context"
	"time"

	"vaxcert/internal/shared/model"
)

// UserStore 用户持久化
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// GetUserRefs 批量查询用户展示字段（email、name），用于证书读路径的显式关联
	GetUserRefs(ctx context.Context, ids []string) (map[string]*model.UserRef, error)

	// UpdateUserRewardPoints 覆盖写积分（对账专用，last-writer-wins）
	UpdateUserRewardPoints(ctx context.Context, id string, points int) error

	// PromoteUserToAdmin 将已有用户升级为管理员，name/passwordHash 为空时不变更
	PromoteUserToAdmin(ctx context.Context, id, name, passwordHash string) error

	ListUsers(ctx context.Context) ([]*model.User, error)
}

// CertificateStore 证书持久化
type CertificateStore interface {
	CreateCertificate(ctx context.Context, cert *model.Certificate) error
	GetCertificate(ctx context.Context, id string) (*model.Certificate, error)

	// ListCertificatesByUser 某用户的全部证书，按创建时间倒序
	ListCertificatesByUser(ctx context.Context, userID string) ([]*model.Certificate, error)

	// ListCertificates 分页列表，status 为空则不过滤；返回 (页内证书, 过滤后总数)
	ListCertificates(ctx context.Context, status string, limit, offset int) ([]*model.Certificate, int, error)

	// CountCertificates 按状态计数，status 为空统计全部
	CountCertificates(ctx context.Context, status string) (int64, error)

	// CountVerifiedByUser 某用户已通过审核的证书数（积分对账输入）
	CountVerifiedByUser(ctx context.Context, userID string) (int64, error)

	// SetCertificateReview 落盘一次审核结论
	// status=verified 时清除 rejection_reason；status=rejected 时写入 reason。
	// 记录不存在返回 ErrNotFound。
	SetCertificateReview(ctx context.Context, id string, status model.CertificateStatus, verifiedBy string, verifiedAt time.Time, reason string) error
}

// PersistentStore 聚合接口，进程内共享一个实例
type PersistentStore interface {
	UserStore
	CertificateStore
	Close() error
}
