package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"vaxcert/internal/apiserver/auth"
	"vaxcert/internal/shared/model"
	"vaxcert/internal/shared/storage"
)

type mockStore struct {
	certs map[string]*model.Certificate
	refs  map[string]*model.UserRef
}

func newMockStore() *mockStore {
	return &mockStore{
		certs: make(map[string]*model.Certificate),
		refs:  make(map[string]*model.UserRef),
	}
}

func (m *mockStore) GetCertificate(_ context.Context, id string) (*model.Certificate, error) {
	return m.certs[id], nil
}

func (m *mockStore) sorted(status string) []*model.Certificate {
	var out []*model.Certificate
	for _, c := range m.certs {
		if status == "" || string(c.Status) == status {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *mockStore) ListCertificates(_ context.Context, status string, limit, offset int) ([]*model.Certificate, int, error) {
	all := m.sorted(status)
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockStore) CountCertificates(_ context.Context, status string) (int64, error) {
	return int64(len(m.sorted(status))), nil
}

func (m *mockStore) SetCertificateReview(_ context.Context, id string, status model.CertificateStatus, verifiedBy string, verifiedAt time.Time, reason string) error {
	c, ok := m.certs[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.Status = status
	c.VerifiedBy = verifiedBy
	c.VerifiedAt = &verifiedAt
	c.RejectionReason = reason
	return nil
}

func (m *mockStore) GetUserRefs(_ context.Context, ids []string) (map[string]*model.UserRef, error) {
	out := make(map[string]*model.UserRef)
	for _, id := range ids {
		if ref, ok := m.refs[id]; ok {
			out[id] = ref
		}
	}
	return out, nil
}

func adminRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(auth.WithAuthUser(req.Context(),
		&auth.AuthUser{ID: "usr-admin", Email: "admin@example.com", Role: auth.RoleAdmin}))
}

func TestListPagination(t *testing.T) {
	store := newMockStore()
	base := time.Now()
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("cert-%02d", i)
		store.certs[id] = &model.Certificate{
			ID: id, UserID: "usr-1", Status: model.CertificateStatusPending,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	h := NewHandler(store, nil)

	rec := httptest.NewRecorder()
	h.List(rec, adminRequest(http.MethodGet, "/api/admin/certificates?page=2&limit=10"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Certificates []struct {
			ID string `json:"id"`
		} `json:"certificates"`
		Pagination struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Total int `json:"total"`
			Pages int `json:"pages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Certificates) != 10 {
		t.Errorf("page size = %d, want 10", len(resp.Certificates))
	}
	// 倒序排列,第二页从第 11 新的记录开始
	if resp.Certificates[0].ID != "cert-10" {
		t.Errorf("first id = %q, want cert-10", resp.Certificates[0].ID)
	}
	if resp.Pagination.Total != 25 || resp.Pagination.Pages != 3 {
		t.Errorf("pagination = %+v, want total 25 pages 3", resp.Pagination)
	}
}

func TestListInvalidStatus(t *testing.T) {
	h := NewHandler(newMockStore(), nil)
	rec := httptest.NewRecorder()
	h.List(rec, adminRequest(http.MethodGet, "/api/admin/certificates?status=bogus"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListStatusFilter(t *testing.T) {
	store := newMockStore()
	store.certs["cert-1"] = &model.Certificate{ID: "cert-1", UserID: "usr-1", Status: model.CertificateStatusPending}
	store.certs["cert-2"] = &model.Certificate{ID: "cert-2", UserID: "usr-1", Status: model.CertificateStatusVerified}
	h := NewHandler(store, nil)

	rec := httptest.NewRecorder()
	h.List(rec, adminRequest(http.MethodGet, "/api/admin/certificates?status=verified"))

	var resp struct {
		Certificates []struct {
			ID string `json:"id"`
		} `json:"certificates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Certificates) != 1 || resp.Certificates[0].ID != "cert-2" {
		t.Errorf("certificates = %+v, want only cert-2", resp.Certificates)
	}
}

func TestVerify(t *testing.T) {
	store := newMockStore()
	store.certs["cert-1"] = &model.Certificate{
		ID: "cert-1", UserID: "usr-1",
		Status:          model.CertificateStatusRejected,
		RejectionReason: "blurry photo",
	}
	h := NewHandler(store, nil)

	req := adminRequest(http.MethodPatch, "/api/admin/certificates/cert-1/verify")
	req.SetPathValue("id", "cert-1")
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	c := store.certs["cert-1"]
	if c.Status != model.CertificateStatusVerified {
		t.Errorf("status = %q, want verified", c.Status)
	}
	if c.VerifiedBy != "usr-admin" || c.VerifiedAt == nil {
		t.Errorf("reviewer not stamped: by=%q at=%v", c.VerifiedBy, c.VerifiedAt)
	}
	// 通过审核时清除之前的拒绝理由
	if c.RejectionReason != "" {
		t.Errorf("rejectionReason = %q, want cleared", c.RejectionReason)
	}
	if !strings.Contains(rec.Body.String(), "Certificate verified successfully") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRejectDefaultReason(t *testing.T) {
	store := newMockStore()
	store.certs["cert-1"] = &model.Certificate{ID: "cert-1", UserID: "usr-1", Status: model.CertificateStatusPending}
	h := NewHandler(store, nil)

	// 空请求体
	req := adminRequest(http.MethodPatch, "/api/admin/certificates/cert-1/reject")
	req.SetPathValue("id", "cert-1")
	rec := httptest.NewRecorder()
	h.Reject(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := store.certs["cert-1"].RejectionReason; got != model.DefaultRejectionReason {
		t.Errorf("reason = %q, want default", got)
	}
}

func TestRejectCustomReason(t *testing.T) {
	store := newMockStore()
	store.certs["cert-1"] = &model.Certificate{ID: "cert-1", UserID: "usr-1", Status: model.CertificateStatusPending}
	h := NewHandler(store, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/certificates/cert-1/reject",
		strings.NewReader(`{"reason":"expired document"}`))
	req = req.WithContext(auth.WithAuthUser(req.Context(), &auth.AuthUser{ID: "usr-admin", Role: auth.RoleAdmin}))
	req.SetPathValue("id", "cert-1")
	rec := httptest.NewRecorder()
	h.Reject(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := store.certs["cert-1"].RejectionReason; got != "expired document" {
		t.Errorf("reason = %q, want expired document", got)
	}
}

func TestReviewNotFound(t *testing.T) {
	h := NewHandler(newMockStore(), nil)

	req := adminRequest(http.MethodPatch, "/api/admin/certificates/cert-x/verify")
	req.SetPathValue("id", "cert-x")
	rec := httptest.NewRecorder()
	h.Verify(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("verify: status = %d, want 404", rec.Code)
	}

	req = adminRequest(http.MethodPatch, "/api/admin/certificates/cert-x/reject")
	req.SetPathValue("id", "cert-x")
	rec = httptest.NewRecorder()
	h.Reject(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("reject: status = %d, want 404", rec.Code)
	}
}

func TestStats(t *testing.T) {
	store := newMockStore()
	store.certs["cert-1"] = &model.Certificate{ID: "cert-1", Status: model.CertificateStatusPending}
	store.certs["cert-2"] = &model.Certificate{ID: "cert-2", Status: model.CertificateStatusVerified}
	store.certs["cert-3"] = &model.Certificate{ID: "cert-3", Status: model.CertificateStatusVerified}
	store.certs["cert-4"] = &model.Certificate{ID: "cert-4", Status: model.CertificateStatusRejected}
	h := NewHandler(store, nil)

	rec := httptest.NewRecorder()
	h.Stats(rec, adminRequest(http.MethodGet, "/api/admin/stats"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Stats map[string]int64 `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := map[string]int64{"total": 4, "pending": 1, "verified": 2, "rejected": 1}
	for k, v := range want {
		if resp.Stats[k] != v {
			t.Errorf("stats[%s] = %d, want %d", k, resp.Stats[k], v)
		}
	}
}
