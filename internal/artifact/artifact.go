// Package artifact manages rendered files that accompany registry records:
// QR codes pointing at the public verification page, and cleanup of a
// certificate's media folder when the record is deleted.
package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"

	"certregistry/internal/certificate"
)

// qrSize is the rendered QR image edge in pixels.
const qrSize = 256

// Manager renders and removes media files. Paths returned to callers are
// relative to the media root so the stored value survives relocation.
type Manager struct {
	mediaDir string
	siteURL  string
	logger   *slog.Logger
}

// NewManager constructs the artifact manager.
func NewManager(mediaDir, siteURL string, logger *slog.Logger) *Manager {
	return &Manager{mediaDir: mediaDir, siteURL: siteURL, logger: logger}
}

// GenerateQR renders the verification QR for one certificate and returns the
// stored relative path.
// Satisfies certificate.ArtifactGenerator.
func (m *Manager) GenerateQR(_ context.Context, certificateID int64) (string, error) {
	dir := m.certificateDir(certificateID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	url := fmt.Sprintf("%s/certificates/%d", m.siteURL, certificateID)
	relPath := filepath.Join("certificates", fmt.Sprintf("%d", certificateID), "qr.png")
	if err := qrcode.WriteFile(url, qrcode.Medium, qrSize, filepath.Join(m.mediaDir, relPath)); err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return relPath, nil
}

// QRPath resolves the absolute path of a stored QR image.
func (m *Manager) QRPath(relPath string) string {
	return filepath.Join(m.mediaDir, relPath)
}

// RemoveCertificateFiles deletes a certificate's media folder, including the
// QR image and any auditor artifacts, and prunes it from disk. Removal is
// best-effort: the record is already gone, leftover files are only noise.
// Satisfies certificate.ArtifactGenerator.
func (m *Manager) RemoveCertificateFiles(ctx context.Context, c *certificate.Certificate, auditors []*certificate.Auditor) {
	for _, a := range auditors {
		if a.ArtifactPath == "" {
			continue
		}
		if err := os.Remove(filepath.Join(m.mediaDir, a.ArtifactPath)); err != nil && !os.IsNotExist(err) {
			m.logger.WarnContext(ctx, "failed to remove auditor artifact",
				"auditor_id", a.ID,
				"path", a.ArtifactPath,
				"error", err,
			)
		}
	}

	dir := m.certificateDir(c.ID)
	if err := os.RemoveAll(dir); err != nil {
		m.logger.WarnContext(ctx, "failed to remove certificate media folder",
			"certificate_id", c.ID,
			"path", dir,
			"error", err,
		)
	}
}

func (m *Manager) certificateDir(certificateID int64) string {
	return filepath.Join(m.mediaDir, "certificates", fmt.Sprintf("%d", certificateID))
}
