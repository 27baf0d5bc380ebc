// Package backend bündelt Registry und Sidecar-Store hinter einer Schnittstelle.
// LiveBackend spricht mit den echten Diensten, FixtureBackend hält alles im Speicher.
package backend

import (
	"context"
	"fmt"

	"rafts/config"
	"rafts/models"
	"rafts/registry"
	"rafts/storage"

	"go.uber.org/zap"
)

// SubmissionBackend ist alles, was die Services von Registry und Sidecar-Store brauchen.
// Das Zugriffstoken wird über den Context übergeben (WithAccessToken).
type SubmissionBackend interface {
	ListRecords(ctx context.Context) ([]models.DoiRecord, error)
	FetchDataCite(ctx context.Context, suffix string) ([]byte, error)
	DownloadSubmission(ctx context.Context, dataDirectory string) (*models.Submission, error)
	UploadSubmission(ctx context.Context, dataDirectory string, sub *models.Submission) error
	UpdateRecord(ctx context.Context, suffix string, update models.NodeUpdate) error
	CreateDraft(ctx context.Context, title, creator string) (string, error)
	DeleteRecord(ctx context.Context, suffix string) error
}

type tokenKey struct{}

// WithAccessToken hängt das SSO-Token des Aufrufers an den Context.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// AccessToken liefert das Token aus dem Context oder "".
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// FromConfig wählt die Implementierung anhand von BACKEND.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (SubmissionBackend, error) {
	switch cfg.Backend {
	case "fixture":
		if cfg.FixtureFile == "" {
			logger.Info("Using empty fixture backend")
			return NewFixtureBackend(cfg.DOIPrefix), nil
		}
		logger.Info("Using fixture backend", zap.String("file", cfg.FixtureFile))
		return LoadFixtureBackend(cfg.FixtureFile, cfg.DOIPrefix)
	case "live":
		var store SidecarStore
		switch cfg.SidecarStore {
		case "s3":
			s3Store, err := storage.NewS3Store(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			store = s3Store
		default:
			store = storage.NewVaultStore(cfg, logger)
		}
		logger.Info("Using live backend",
			zap.String("registry", cfg.DOIRegistryURL), zap.String("sidecar_store", cfg.SidecarStore))
		return NewLiveBackend(registry.NewClient(cfg, logger), store, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
