// Package certificate 提供疫苗接种证明的上传、查询与文件下载接口。
package certificate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"vaxcert/internal/apiserver/auth"
	"vaxcert/internal/shared/model"
	"vaxcert/internal/shared/objstore"
)

// 上传文件大小上限
const maxUploadSize = 10 << 20

// Store 证书存储接口
type Store interface {
	CreateCertificate(ctx context.Context, cert *model.Certificate) error
	GetCertificate(ctx context.Context, id string) (*model.Certificate, error)
	ListCertificatesByUser(ctx context.Context, userID string) ([]*model.Certificate, error)
	GetUserRefs(ctx context.Context, ids []string) (map[string]*model.UserRef, error)
}

// ObjectStore 证书文件存储接口
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// Rewards 积分对账接口。读取本人证书列表前先对账，保证返回前积分已一致。
type Rewards interface {
	ReconcileUser(ctx context.Context, userID string) (int, error)
}

// Recorder 上传指标记录接口,可为 nil
type Recorder interface {
	RecordCertificateUpload(fileType string)
}

// Handler 证书 HTTP 处理器
type Handler struct {
	store   Store
	objects ObjectStore
	rewards Rewards
	metrics Recorder
}

// NewHandler 创建证书处理器
func NewHandler(store Store, objects ObjectStore, rewards Rewards, metrics Recorder) *Handler {
	return &Handler{store: store, objects: objects, rewards: rewards, metrics: metrics}
}

// RegisterRoutes 注册证书相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/certificates/upload", h.Upload)
	mux.HandleFunc("GET /api/certificates/my-certificates", h.MyCertificates)
	mux.HandleFunc("GET /api/certificates/{id}/file", h.DownloadFile)
}

// Upload 上传证明文件并创建 pending 状态的证书记录
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	file, header, err := r.FormFile("certificate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	certID := generateID("cert")
	key := objstore.CertificateKey(certID, header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	if err := h.objects.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		log.Printf("[certificate] upload object %s failed: %v", key, err)
		writeError(w, http.StatusInternalServerError, "Failed to store certificate file")
		return
	}

	now := time.Now()
	cert := &model.Certificate{
		ID:        certID,
		UserID:    user.ID,
		FilePath:  key,
		FileName:  header.Filename,
		FileType:  model.FileTypeFromName(header.Filename),
		Status:    model.CertificateStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateCertificate(r.Context(), cert); err != nil {
		log.Printf("[certificate] create certificate failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save certificate")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCertificateUpload(string(cert.FileType))
	}
	log.Printf("[certificate] User %s uploaded certificate %s (%s)", user.ID, cert.ID, cert.FileType)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Certificate uploaded successfully",
		"certificate": map[string]interface{}{
			"id":         cert.ID,
			"fileName":   cert.FileName,
			"fileType":   cert.FileType,
			"status":     cert.Status,
			"uploadedAt": cert.CreatedAt,
		},
	})
}

// MyCertificates 返回当前用户的全部证书,按上传时间倒序
func (h *Handler) MyCertificates(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	// 惰性对账:读取前核对积分,失败不阻塞列表返回
	if _, err := h.rewards.ReconcileUser(r.Context(), user.ID); err != nil {
		log.Printf("[certificate] reconcile rewards for user %s failed: %v", user.ID, err)
	}

	certs, err := h.store.ListCertificatesByUser(r.Context(), user.ID)
	if err != nil {
		log.Printf("[certificate] list certificates for user %s failed: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load certificates")
		return
	}

	refs, err := h.store.GetUserRefs(r.Context(), collectUserIDs(certs))
	if err != nil {
		log.Printf("[certificate] load user refs failed: %v", err)
		refs = map[string]*model.UserRef{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"certificates": model.BuildViews(certs, refs),
	})
}

// DownloadFile 下载证书文件。仅证书本人或管理员可访问。
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	cert, err := h.store.GetCertificate(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("[certificate] get certificate failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load certificate")
		return
	}
	if cert == nil {
		writeError(w, http.StatusNotFound, "Certificate not found")
		return
	}
	if cert.UserID != user.ID && !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	obj, err := h.objects.Download(r.Context(), cert.FilePath)
	if err != nil {
		log.Printf("[certificate] download object %s failed: %v", cert.FilePath, err)
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	defer obj.Close()

	contentType := mime.TypeByExtension(filepath.Ext(cert.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", cert.FileName))
	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("[certificate] stream object %s failed: %v", cert.FilePath, err)
	}
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

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// generateID 生成带前缀的唯一标识符，格式 prefix-xxxxxxxxxxxx
func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
