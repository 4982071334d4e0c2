package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsPublicRoute(t *testing.T) {
	tests := []struct {
		path   string
		public bool
	}{
		{"/api/auth/register", true},
		{"/api/auth/login", true},
		{"/api/auth/refresh", true},
		{"/api/health", true},
		{"/metrics", true},
		{"/api/auth/me", false},
		{"/api/certificates/upload", false},
		{"/api/admin/certificates", false},
	}
	for _, tt := range tests {
		if got := isPublicRoute(tt.path); got != tt.public {
			t.Errorf("isPublicRoute(%q) = %v, want %v", tt.path, got, tt.public)
		}
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	cfg := testConfig()
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareRejectsRefreshToken(t *testing.T) {
	cfg := testConfig()
	token, err := GenerateRefreshToken(cfg, "usr-001")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with refresh token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareInjectsAuthUser(t *testing.T) {
	cfg := testConfig()
	token, err := GenerateAccessToken(cfg, "usr-001", "a@b.com", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	var got *AuthUser
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetAuthUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil {
		t.Fatal("AuthUser not injected")
	}
	if got.ID != "usr-001" || got.Role != RoleAdmin {
		t.Errorf("AuthUser = %+v", got)
	}
	if !got.IsAdmin() {
		t.Error("IsAdmin() = false for admin role")
	}
}

func TestAdminOnly(t *testing.T) {
	called := false
	handler := AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	// 未认证
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no user: status = %d, want 401", rec.Code)
	}

	// 普通成员
	req = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req = req.WithContext(WithAuthUser(req.Context(), &AuthUser{ID: "usr-001", Role: RoleMember}))
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member: status = %d, want 403", rec.Code)
	}
	if called {
		t.Error("handler called for non-admin")
	}

	// 管理员
	req = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req = req.WithContext(WithAuthUser(req.Context(), &AuthUser{ID: "usr-002", Role: RoleAdmin}))
	rec = httptest.NewRecorder()
	handler(rec, req)
	if !called {
		t.Error("handler not called for admin")
	}
}
