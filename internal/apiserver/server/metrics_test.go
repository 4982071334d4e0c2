package server

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/certificates/cert-a1b2c3/file", "/api/certificates/{id}/file"},
		{"/api/admin/certificates/cert-a1b2c3/verify", "/api/admin/certificates/{id}/verify"},
		{"/api/admin/certificates/cert-a1b2c3/reject", "/api/admin/certificates/{id}/reject"},
		{"/api/admin/certificates/cert-a1b2c3", "/api/admin/certificates/{id}"},
		{"/api/admin/certificates", "/api/admin/certificates"},
		{"/api/certificates/upload", "/api/certificates/upload"},
		{"/api/health", "/api/health"},
		{"/metrics", "/metrics"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
