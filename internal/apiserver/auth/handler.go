package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"vaxcert/internal/shared/model"
	"vaxcert/internal/shared/storage"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	PromoteUserToAdmin(ctx context.Context, id, name, passwordHash string) error
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store UserStore
	cfg   Config
}

// NewHandler 创建认证处理器
func NewHandler(store UserStore, cfg Config) *Handler {
	return &Handler{store: store, cfg: cfg}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Refresh)
	mux.HandleFunc("GET /api/auth/me", h.Me)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 用户注册，角色固定为 member
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("[auth.register] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Email:        strings.ToLower(req.Email),
		Name:         req.Name,
		PasswordHash: hash,
		Role:         model.UserRoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// email 唯一性由存储层唯一索引保证
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Printf("[auth.register] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	accessToken, err := GenerateAccessToken(h.cfg, user.ID, user.Email, string(user.Role))
	if err != nil {
		log.Printf("[auth.register] GenerateAccessToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	refreshToken, err := GenerateRefreshToken(h.cfg, user.ID)
	if err != nil {
		log.Printf("[auth.register] GenerateRefreshToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[auth] User registered: %s (%s)", user.Email, user.ID)
	writeJSON(w, http.StatusCreated, authResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Login 用户登录
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		log.Printf("[auth.login] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	accessToken, err := GenerateAccessToken(h.cfg, user.ID, user.Email, string(user.Role))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	refreshToken, err := GenerateRefreshToken(h.cfg, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[auth] User logged in: %s", user.Email)
	writeJSON(w, http.StatusOK, authResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Refresh 刷新访问令牌
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	claims, err := ParseToken(h.cfg, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if claims.Type != "refresh" {
		writeError(w, http.StatusUnauthorized, "invalid token type")
		return
	}

	// 查询用户确保仍然存在
	user, err := h.store.GetUserByID(r.Context(), claims.Subject)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	accessToken, err := GenerateAccessToken(h.cfg, user.ID, user.Email, string(user.Role))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken": accessToken,
	})
}

// Me 获取当前用户信息（含积分）
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), authUser.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// ============================================================================
// Admin Bootstrap
// ============================================================================

// EnsureAdminUser 确保管理员用户存在（启动时调用）
// 如果配置了 adminEmail 且数据库中不存在该用户，则自动创建；
// 已存在但不是管理员则升级角色。
func EnsureAdminUser(store UserStore, adminEmail, adminPassword string) error {
	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	ctx := context.Background()
	email := strings.ToLower(adminEmail)
	existing, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if existing != nil {
		if existing.Role != model.UserRoleAdmin {
			log.Printf("[auth] Upgrading user %s to admin role", email)
			return store.PromoteUserToAdmin(ctx, existing.ID, "", "")
		}
		log.Printf("[auth] Admin user already exists: %s (%s)", email, existing.ID)
		return nil
	}

	hash, err := HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Email:        email,
		Name:         "Admin",
		PasswordHash: hash,
		Role:         model.UserRoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Printf("[auth] Created admin user: %s (%s)", email, user.ID)
	return nil
}

// ============================================================================
// 工具函数
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// generateID 生成带前缀的唯一标识符，格式 prefix-xxxxxxxxxxxx
func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
