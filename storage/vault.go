package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rafts/config"
	"rafts/errs"
	"rafts/models"

	"go.uber.org/zap"
)

// SidecarFile ist der Dateiname der Submission im Datenverzeichnis.
const SidecarFile = "RAFT.json"

const cookieName = "CADC_SSO"

// VaultStore liest und schreibt RAFT.json über die Vault-Dateischnittstelle.
type VaultStore struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *zap.Logger
}

func NewVaultStore(cfg *config.Config, logger *zap.Logger) *VaultStore {
	return &VaultStore{
		BaseURL: strings.TrimRight(cfg.VaultBaseURL, "/"),
		HTTP:    &http.Client{Timeout: cfg.HTTPTimeout},
		Logger:  logger,
	}
}

func (v *VaultStore) fileURL(dataDirectory string) string {
	return v.BaseURL + "/" + SidecarPath(dataDirectory)
}

// Download lädt die Submission aus dataDirectory. Fehlt die Datei, ist der Fehler errs.ErrSidecarNotFound.
func (v *VaultStore) Download(ctx context.Context, token, dataDirectory string) (*models.Submission, error) {
	const op = "download RAFT.json"
	if token == "" {
		return nil, errs.ErrNotAuthenticated
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.fileURL(dataDirectory), nil)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	req.Header.Set("Accept", "application/json")

	resp, err := v.HTTP.Do(req)
	if err != nil {
		return nil, &errs.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", dataDirectory, errs.ErrSidecarNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, errs.Upstream(op, resp.StatusCode, body)
	}
	return decodeSubmission(op, body)
}

// Upload schreibt die Submission als RAFT.json nach dataDirectory.
func (v *VaultStore) Upload(ctx context.Context, token, dataDirectory string, sub *models.Submission) error {
	const op = "upload RAFT.json"
	if token == "" {
		return errs.ErrNotAuthenticated
	}
	payload, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, v.fileURL(dataDirectory), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.HTTP.Do(req)
	if err != nil {
		return &errs.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errs.Upstream(op, resp.StatusCode, body)
	}
	v.Logger.Info("RAFT.json uploaded", zap.String("dataDirectory", dataDirectory), zap.Int("bytes", len(payload)))
	return nil
}

// SidecarPath ist der Pfad der RAFT.json relativ zur Store-Wurzel.
func SidecarPath(dataDirectory string) string {
	dir := strings.Trim(dataDirectory, "/")
	if dir == "" {
		return SidecarFile
	}
	return dir + "/" + SidecarFile
}

func decodeSubmission(op string, body []byte) (*models.Submission, error) {
	var sub models.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, errs.Parse(op, err)
	}
	return &sub, nil
}
