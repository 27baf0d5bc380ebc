package backend

import (
	"context"
	"time"

	"rafts/datacite"
	"rafts/errs"
	"rafts/models"

	"go.uber.org/zap"
)

// Registry ist der Teil des Registry-Clients, den LiveBackend nutzt.
type Registry interface {
	List(ctx context.Context, token string) ([]models.DoiRecord, error)
	GetDataCite(ctx context.Context, token, suffix string) ([]byte, error)
	CreateDraft(ctx context.Context, token string, metadata any) (string, error)
	Update(ctx context.Context, token, suffix string, update models.NodeUpdate) error
	Delete(ctx context.Context, token, suffix string) error
}

// SidecarStore liest und schreibt RAFT.json (Vault oder S3).
type SidecarStore interface {
	Download(ctx context.Context, token, dataDirectory string) (*models.Submission, error)
	Upload(ctx context.Context, token, dataDirectory string, sub *models.Submission) error
}

type LiveBackend struct {
	Registry Registry
	Store    SidecarStore
	Logger   *zap.Logger
}

var _ SubmissionBackend = (*LiveBackend)(nil)

func NewLiveBackend(reg Registry, store SidecarStore, logger *zap.Logger) *LiveBackend {
	return &LiveBackend{Registry: reg, Store: store, Logger: logger}
}

func token(ctx context.Context) (string, error) {
	t := AccessToken(ctx)
	if t == "" {
		return "", errs.ErrNotAuthenticated
	}
	return t, nil
}

func (b *LiveBackend) ListRecords(ctx context.Context) ([]models.DoiRecord, error) {
	t, err := token(ctx)
	if err != nil {
		return nil, err
	}
	return b.Registry.List(ctx, t)
}

func (b *LiveBackend) FetchDataCite(ctx context.Context, suffix string) ([]byte, error) {
	t, err := token(ctx)
	if err != nil {
		return nil, err
	}
	return b.Registry.GetDataCite(ctx, t, suffix)
}

func (b *LiveBackend) DownloadSubmission(ctx context.Context, dataDirectory string) (*models.Submission, error) {
	t, err := token(ctx)
	if err != nil {
		return nil, err
	}
	return b.Store.Download(ctx, t, dataDirectory)
}

func (b *LiveBackend) UploadSubmission(ctx context.Context, dataDirectory string, sub *models.Submission) error {
	t, err := token(ctx)
	if err != nil {
		return err
	}
	return b.Store.Upload(ctx, t, dataDirectory, sub)
}

func (b *LiveBackend) UpdateRecord(ctx context.Context, suffix string, update models.NodeUpdate) error {
	t, err := token(ctx)
	if err != nil {
		return err
	}
	return b.Registry.Update(ctx, t, suffix, update)
}

// CreateDraft legt den DOI an. Das Datenverzeichnis erzeugt die Registry selbst.
func (b *LiveBackend) CreateDraft(ctx context.Context, title, creator string) (string, error) {
	t, err := token(ctx)
	if err != nil {
		return "", err
	}
	metadata := datacite.BuildDraftMetadata(title, creator, time.Now().Year())
	return b.Registry.CreateDraft(ctx, t, metadata)
}

func (b *LiveBackend) DeleteRecord(ctx context.Context, suffix string) error {
	t, err := token(ctx)
	if err != nil {
		return err
	}
	return b.Registry.Delete(ctx, t, suffix)
}
