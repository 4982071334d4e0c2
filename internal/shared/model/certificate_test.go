package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypeFromName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		expected FileType
	}{
		{"lowercase pdf", "cert.pdf", FileTypePDF},
		{"uppercase pdf", "cert.PDF", FileTypePDF},
		{"mixed case pdf", "cert.Pdf", FileTypePDF},
		{"jpg", "cert.jpg", FileTypeImage},
		{"png", "scan.png", FileTypeImage},
		{"no extension", "certificate", FileTypeImage},
		{"pdf in middle", "cert.pdf.jpg", FileTypeImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileTypeFromName(tt.fileName))
		})
	}
}

func TestCertificate_FilePathNeverSerialized(t *testing.T) {
	cert := &Certificate{
		ID:       "cert-aabbccddeeff",
		UserID:   "usr-001",
		FilePath: "certificates/cert-aabbccddeeff/scan.pdf",
		FileName: "scan.pdf",
		FileType: FileTypePDF,
		Status:   CertificateStatusPending,
	}

	data, err := json.Marshal(cert)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "certificates/cert-aabbccddeeff")
	assert.NotContains(t, string(data), "filePath")
}

func TestBuildView(t *testing.T) {
	now := time.Now()
	cert := &Certificate{
		ID:         "cert-001",
		UserID:     "usr-owner",
		Status:     CertificateStatusVerified,
		VerifiedBy: "usr-admin",
		VerifiedAt: &now,
	}
	users := map[string]*UserRef{
		"usr-owner": {ID: "usr-owner", Email: "owner@example.com", Name: "Owner"},
		"usr-admin": {ID: "usr-admin", Email: "admin@example.com"},
	}

	v := BuildView(cert, users)
	require.NotNil(t, v.Owner)
	assert.Equal(t, "owner@example.com", v.Owner.Email)
	require.NotNil(t, v.Verifier)
	assert.Equal(t, "admin@example.com", v.Verifier.Email)

	// pending 证书没有 verifier
	pending := &Certificate{ID: "cert-002", UserID: "usr-owner", Status: CertificateStatusPending}
	v = BuildView(pending, users)
	assert.Nil(t, v.Verifier)
}

func TestUser_Points(t *testing.T) {
	u := &User{ID: "usr-001"}
	assert.Equal(t, 0, u.Points())

	points := 300
	u.RewardPoints = &points
	assert.Equal(t, 300, u.Points())
}

func TestUser_PasswordHashNeverSerialized(t *testing.T) {
	u := &User{ID: "usr-001", Email: "a@b.com", PasswordHash: "$2a$12$secret"}
	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestValidCertificateStatus(t *testing.T) {
	assert.True(t, ValidCertificateStatus("pending"))
	assert.True(t, ValidCertificateStatus("verified"))
	assert.True(t, ValidCertificateStatus("rejected"))
	assert.False(t, ValidCertificateStatus(""))
	assert.False(t, ValidCertificateStatus("approved"))
}
