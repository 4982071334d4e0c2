package auth

import (
	"log"
	"net/http"
	"strings"
)

// 角色常量（避免 model 包循环引用）
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// 免认证路由白名单（前缀匹配）
var publicPrefixes = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/api/auth/refresh",
	"/api/health",
	"/metrics",
}

func isPublicRoute(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware 创建 JWT 认证中间件
// 认证失败一律 401；角色检查由 AdminOnly 负责（403）
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 公开路由：直接放行
			if isPublicRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			// 提取 Bearer Token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			// 解析 JWT
			claims, err := ParseToken(cfg, parts[1])
			if err != nil {
				log.Printf("[auth] token parse error: %v", err)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			if claims.Type != "access" {
				writeError(w, http.StatusUnauthorized, "invalid token type")
				return
			}

			// 注入 auth user 到 context
			user := &AuthUser{
				ID:    claims.Subject,
				Email: claims.Email,
				Role:  claims.Role,
			}
			next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user)))
		})
	}
}

// AdminOnly 管理员专属路由中间件
// 角色检查在任何数据访问之前完成
func AdminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetAuthUser(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if user.Role != RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}
