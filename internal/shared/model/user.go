package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

// User 用户
//
// RewardPoints 是派生值：100 × 该用户已通过审核的证书数。
// 指针区分「从未初始化」(nil) 与「已写入 0」，对账时据此统计 initialized。
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"` // 存储时统一小写
	Name         string    `json:"name,omitempty" bson:"name,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash"` // never expose in JSON
	Role         UserRole  `json:"role" bson:"role"`
	RewardPoints *int      `json:"rewardPoints,omitempty" bson:"reward_points,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// Points 返回积分值，未初始化视为 0
func (u *User) Points() int {
	if u.RewardPoints == nil {
		return 0
	}
	return *u.RewardPoints
}

// Ref 返回关联查询用的展示字段投影
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Email: u.Email, Name: u.Name}
}

// UserRef 关联查询时暴露的用户展示字段（仅 email、name）
type UserRef struct {
	ID    string `json:"id" bson:"_id"`
	Email string `json:"email" bson:"email"`
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
}
