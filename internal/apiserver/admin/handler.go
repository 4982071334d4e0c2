// Package admin 提供管理员审核证书与统计接口。所有路由要求 admin 角色。
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"vaxcert/internal/apiserver/auth"
	"vaxcert/internal/shared/model"
	"vaxcert/internal/shared/storage"
)

// 分页默认值
const (
	defaultPage  = 1
	defaultLimit = 10
)

// Store 管理端所需的存储接口
type Store interface {
	GetCertificate(ctx context.Context, id string) (*model.Certificate, error)
	ListCertificates(ctx context.Context, status string, limit, offset int) ([]*model.Certificate, int, error)
	CountCertificates(ctx context.Context, status string) (int64, error)
	SetCertificateReview(ctx context.Context, id string, status model.CertificateStatus, verifiedBy string, verifiedAt time.Time, reason string) error
	GetUserRefs(ctx context.Context, ids []string) (map[string]*model.UserRef, error)
}

// Recorder 审核指标记录接口,可为 nil
type Recorder interface {
	RecordCertificateReview(decision string)
}

// Handler 管理员 HTTP 处理器
type Handler struct {
	store   Store
	metrics Recorder
}

// NewHandler 创建管理员处理器
func NewHandler(store Store, metrics Recorder) *Handler {
	return &Handler{store: store, metrics: metrics}
}

// RegisterRoutes 注册管理员路由,统一套 AdminOnly 校验
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/admin/certificates", auth.AdminOnly(h.List))
	mux.HandleFunc("GET /api/admin/certificates/{id}", auth.AdminOnly(h.Detail))
	mux.HandleFunc("PATCH /api/admin/certificates/{id}/verify", auth.AdminOnly(h.Verify))
	mux.HandleFunc("PATCH /api/admin/certificates/{id}/reject", auth.AdminOnly(h.Reject))
	mux.HandleFunc("GET /api/admin/stats", auth.AdminOnly(h.Stats))
}

// List 分页列出证书,可按状态过滤
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := parsePositiveInt(q.Get("page"), defaultPage)
	limit := parsePositiveInt(q.Get("limit"), defaultLimit)

	status := q.Get("status")
	if status != "" && !model.ValidCertificateStatus(status) {
		writeError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	certs, total, err := h.store.ListCertificates(r.Context(), status, limit, (page-1)*limit)
	if err != nil {
		log.Printf("[admin] list certificates failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load certificates")
		return
	}

	refs, err := h.store.GetUserRefs(r.Context(), collectUserIDs(certs))
	if err != nil {
		log.Printf("[admin] load user refs failed: %v", err)
		refs = map[string]*model.UserRef{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"certificates": model.BuildViews(certs, refs),
		"pagination": map[string]interface{}{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

// Detail 查询单个证书及关联用户
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	cert, err := h.store.GetCertificate(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("[admin] get certificate failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load certificate")
		return
	}
	if cert == nil {
		writeError(w, http.StatusNotFound, "Certificate not found")
		return
	}

	refs, err := h.store.GetUserRefs(r.Context(), collectUserIDs([]*model.Certificate{cert}))
	if err != nil {
		log.Printf("[admin] load user refs failed: %v", err)
		refs = map[string]*model.UserRef{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"certificate": model.BuildView(cert, refs),
	})
}

// Verify 将证书标记为已通过审核
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetAuthUser(r.Context())
	id := r.PathValue("id")
	now := time.Now()

	err := h.store.SetCertificateReview(r.Context(), id, model.CertificateStatusVerified, admin.ID, now, "")
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Certificate not found")
		return
	}
	if err != nil {
		log.Printf("[admin] verify certificate %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to verify certificate")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCertificateReview("verified")
	}
	log.Printf("[admin] Certificate %s verified by %s", id, admin.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Certificate verified successfully",
		"certificate": map[string]interface{}{
			"id":         id,
			"status":     model.CertificateStatusVerified,
			"verifiedBy": admin.ID,
			"verifiedAt": now,
		},
	})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject 将证书标记为已拒绝,理由可选
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetAuthUser(r.Context())
	id := r.PathValue("id")

	// 请求体可以为空,也可以带 {"reason": ...}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = model.DefaultRejectionReason
	}

	now := time.Now()
	err := h.store.SetCertificateReview(r.Context(), id, model.CertificateStatusRejected, admin.ID, now, reason)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Certificate not found")
		return
	}
	if err != nil {
		log.Printf("[admin] reject certificate %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to reject certificate")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCertificateReview("rejected")
	}
	log.Printf("[admin] Certificate %s rejected by %s", id, admin.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Certificate rejected",
		"certificate": map[string]interface{}{
			"id":              id,
			"status":          model.CertificateStatusRejected,
			"rejectionReason": reason,
		},
	})
}

// Stats 各状态证书计数
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int64, 4)
	for _, status := range []string{"", "pending", "verified", "rejected"} {
		n, err := h.store.CountCertificates(r.Context(), status)
		if err != nil {
			log.Printf("[admin] count certificates (status=%q) failed: %v", status, err)
			writeError(w, http.StatusInternalServerError, "Failed to load stats")
			return
		}
		key := status
		if key == "" {
			key = "total"
		}
		counts[key] = n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats": counts,
	})
}

// collectUserIDs 收集证书涉及的用户 ID(所有者与审核人)用于批量查询
func collectUserIDs(certs []*model.Certificate) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range certs {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
		if c.VerifiedBy != "" && !seen[c.VerifiedBy] {
			seen[c.VerifiedBy] = true
			ids = append(ids, c.VerifiedBy)
		}
	}
	return ids
}

// parsePositiveInt 解析正整数查询参数,非法或缺失时取默认值
func parsePositiveInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
