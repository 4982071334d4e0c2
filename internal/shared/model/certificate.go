package model

import (
	"path/filepath"
	"strings"
	"time"
)

// CertificateStatus 证书审核状态
type CertificateStatus string

const (
	CertificateStatusPending  CertificateStatus = "pending"
	CertificateStatusVerified CertificateStatus = "verified"
	CertificateStatusRejected CertificateStatus = "rejected"
)

// ValidCertificateStatus 校验状态过滤参数
func ValidCertificateStatus(s string) bool {
	switch CertificateStatus(s) {
	case CertificateStatusPending, CertificateStatusVerified, CertificateStatusRejected:
		return true
	}
	return false
}

// FileType 上传文件类型
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeImage FileType = "image"
)

// DefaultRejectionReason 拒绝时未提供理由的默认文案
const DefaultRejectionReason = "Certificate rejected by admin"

// FileTypeFromName 根据文件扩展名推断文件类型
// 仅凭扩展名判断（大小写不敏感的 .pdf → pdf，其余一律 → image），不做内容嗅探
func FileTypeFromName(name string) FileType {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return FileTypePDF
	}
	return FileTypeImage
}

// Certificate 疫苗接种证书记录
//
// 生命周期：仅通过上传创建（status=pending），仅通过管理员审核操作变更状态，
// 不提供删除。FilePath 是对象存储 key，任何响应都不序列化。
type Certificate struct {
	ID              string            `json:"id" bson:"_id"`
	UserID          string            `json:"userId" bson:"user_id"`
	FilePath        string            `json:"-" bson:"file_path"`
	FileName        string            `json:"fileName" bson:"file_name"`
	FileType        FileType          `json:"fileType" bson:"file_type"`
	Status          CertificateStatus `json:"status" bson:"status"`
	VerifiedBy      string            `json:"verifiedBy,omitempty" bson:"verified_by,omitempty"`
	VerifiedAt      *time.Time        `json:"verifiedAt,omitempty" bson:"verified_at,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty" bson:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time         `json:"updatedAt" bson:"updated_at"`
}

// CertificateView 证书 + 关联用户展示字段
//
// 关联是每个读路径显式调用的投影步骤，不做存储层隐式钩子。
type CertificateView struct {
	*Certificate
	Owner    *UserRef `json:"user,omitempty"`
	Verifier *UserRef `json:"verifier,omitempty"`
}

// BuildView 关联单个证书的 owner/verifier 展示字段
func BuildView(c *Certificate, users map[string]*UserRef) *CertificateView {
	v := &CertificateView{Certificate: c}
	v.Owner = users[c.UserID]
	if c.VerifiedBy != "" {
		v.Verifier = users[c.VerifiedBy]
	}
	return v
}

// BuildViews 批量关联
func BuildViews(certs []*Certificate, users map[string]*UserRef) []*CertificateView {
	views := make([]*CertificateView, 0, len(certs))
	for _, c := range certs {
		views = append(views, BuildView(c, users))
	}
	return views
}
