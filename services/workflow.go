package services

import (
	"context"
	"strings"

	"rafts/backend"
	"rafts/errs"
	"rafts/history"
	"rafts/metrics"
	"rafts/models"

	"go.uber.org/zap"
)

// Workflow setzt Review-Aktionen als Registry-Updates um.
// Nur Bearbeitbarkeit und Einreichen werden hier geprüft, alle übrigen
// Übergänge prüft die Registry.
type Workflow struct {
	Reconciler *Reconciler
	Backend    backend.SubmissionBackend
	History    history.Store
	Logger     *zap.Logger
}

func NewWorkflow(rec *Reconciler, h history.Store, logger *zap.Logger) *Workflow {
	return &Workflow{Reconciler: rec, Backend: rec.Backend, History: h, Logger: logger}
}

// SubmitForReview: in progress -> review ready.
func (w *Workflow) SubmitForReview(ctx context.Context, id, actor string) error {
	record, err := w.Reconciler.Lookup(ctx, id)
	if err != nil {
		return err
	}
	if !CanSubmitForReview(record.Status) {
		return errs.ErrCannotSubmit
	}
	return w.setStatus(ctx, id, record, models.NodeUpdate{Status: models.StringPtr(models.StatusReviewReady)}, actor, "")
}

// BeginEdit bereitet das Bearbeiten vor. Aus "rejected" wird zuerst "in progress".
// Liefert true, wenn der Status geändert wurde.
func (w *Workflow) BeginEdit(ctx context.Context, id, actor string) (bool, error) {
	record, err := w.Reconciler.Lookup(ctx, id)
	if err != nil {
		return false, err
	}
	if !IsEditable(record.Status) {
		return false, errs.ErrNotEditable
	}
	if NormalizeStatus(record.Status) == models.StatusInProgress {
		return false, nil
	}
	err = w.setStatus(ctx, id, record, models.NodeUpdate{Status: models.StringPtr(models.StatusInProgress)}, actor, "edit after rejection")
	return err == nil, err
}

// Claim übernimmt einen RAFT zur Begutachtung.
func (w *Workflow) Claim(ctx context.Context, id, reviewer string) error {
	if strings.TrimSpace(reviewer) == "" {
		return errs.Invalid("reviewer", "reviewer must not be empty")
	}
	record, err := w.Reconciler.Lookup(ctx, id)
	if err != nil {
		return err
	}
	return w.setStatus(ctx, id, record, models.NodeUpdate{
		Status:   models.StringPtr(models.StatusInReview),
		Reviewer: models.StringPtr(reviewer),
	}, reviewer, "")
}

// Release gibt einen RAFT zurück in die Warteschlange.
func (w *Workflow) Release(ctx context.Context, id, actor string) error {
	record, err := w.Reconciler.Lookup(ctx, id)
	if err != nil {
		return err
	}
	return w.setStatus(ctx, id, record, models.NodeUpdate{
		Status:   models.StringPtr(models.StatusReviewReady),
		Reviewer: models.StringPtr(""),
	}, actor, "released")
}

func (w *Workflow) Approve(ctx context.Context, id, actor string) error {
	record, err := w.Reconciler.Lookup(ctx, id)
	if err != nil {
		return err
	}
	return w.setStatus(ctx, id, record, models.NodeUpdate{Status: models.StringPtr(models.StatusApproved)}, actor, "")
}

func (w *Workflow) Reject(ctx context.Context, id, actor, comment string) error {
	record, err := w.Reconciler.Lookup(ctx, id)
	if err != nil {
		return err
	}
	return w.setStatus(ctx, id, record, models.NodeUpdate{Status: models.StringPtr(models.StatusRejected)}, actor, comment)
}

// AssignReviewer setzt nur den Reviewer, der Status bleibt.
func (w *Workflow) AssignReviewer(ctx context.Context, id, reviewer string) error {
	if strings.TrimSpace(reviewer) == "" {
		return errs.Invalid("reviewer", "reviewer must not be empty")
	}
	if id == "" {
		return errs.Invalid("id", "identifier must not be empty")
	}
	return w.Backend.UpdateRecord(ctx, id, models.NodeUpdate{Reviewer: models.StringPtr(reviewer)})
}

func (w *Workflow) UnassignReviewer(ctx context.Context, id string) error {
	if id == "" {
		return errs.Invalid("id", "identifier must not be empty")
	}
	return w.Backend.UpdateRecord(ctx, id, models.NodeUpdate{Reviewer: models.StringPtr("")})
}

// SaveSubmission schreibt die RAFT.json neu. Erlaubt nur, solange der RAFT bearbeitbar ist.
// Identität und Status im Sidecar werden aus der Registry gesetzt.
func (w *Workflow) SaveSubmission(ctx context.Context, id string, sub *models.Submission) error {
	if sub == nil {
		return errs.Invalid("body", "submission must not be empty")
	}
	record, err := w.Reconciler.Lookup(ctx, id)
	if err != nil {
		return err
	}
	if !IsEditable(record.Status) {
		return errs.ErrNotEditable
	}
	toStore, err := sub.Clone()
	if err != nil {
		return err
	}
	if toStore.GeneralInfo == nil {
		toStore.GeneralInfo = &models.GeneralInfo{Title: record.Title}
	}
	toStore.GeneralInfo.Status = record.Status
	toStore.ID = ""
	toStore.DataDirectory = ""
	toStore.Reviewer = ""

	if err := w.Backend.UploadSubmission(ctx, record.DataDirectory, toStore); err != nil {
		return err
	}
	w.Logger.Info("RAFT saved", zap.String("identifier", id), zap.String("dataDirectory", record.DataDirectory))
	return nil
}

// CreateDraft legt einen neuen Entwurf an und liefert dessen Suffix.
func (w *Workflow) CreateDraft(ctx context.Context, title, creator string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled RAFT Draft"
	}
	creator = strings.TrimSpace(creator)
	if creator == "" {
		creator = "Unknown Author"
	}
	suffix, err := w.Backend.CreateDraft(ctx, title, creator)
	if err != nil {
		return "", err
	}
	w.record(ctx, &models.StatusChange{RaftID: suffix, ToStatus: models.StatusInProgress, ChangedBy: creator, Reason: "created"})
	return suffix, nil
}

// DeleteRaft entfernt den DOI. Das Sidecar räumt die Registry mit auf.
func (w *Workflow) DeleteRaft(ctx context.Context, id string) error {
	if id == "" {
		return errs.Invalid("id", "identifier must not be empty")
	}
	if err := w.Backend.DeleteRecord(ctx, id); err != nil {
		return err
	}
	w.Logger.Info("RAFT deleted", zap.String("identifier", id))
	return nil
}

// StatusHistory liefert die aufgezeichneten Statuswechsel eines RAFT.
func (w *Workflow) StatusHistory(ctx context.Context, id string) ([]models.StatusChange, error) {
	if id == "" {
		return nil, errs.Invalid("id", "identifier must not be empty")
	}
	if w.History == nil {
		return []models.StatusChange{}, nil
	}
	return w.History.List(ctx, id)
}

func (w *Workflow) setStatus(ctx context.Context, id string, record models.DoiRecord, update models.NodeUpdate, actor, reason string) error {
	log := w.Logger.With(zap.String("identifier", id), zap.String("from", record.Status), zap.String("to", *update.Status))
	if err := w.Backend.UpdateRecord(ctx, id, update); err != nil {
		log.Warn("Registry rejected status update", zap.Error(err))
		return err
	}
	metrics.StatusTransitions.WithLabelValues(*update.Status).Inc()
	log.Info("RAFT status updated", zap.String("actor", actor))

	w.record(ctx, &models.StatusChange{
		RaftID:     id,
		FromStatus: record.Status,
		ToStatus:   *update.Status,
		ChangedBy:  actor,
		Reason:     reason,
	})
	return nil
}

// record schreibt die Historie. Fehler werden nur protokolliert.
func (w *Workflow) record(ctx context.Context, change *models.StatusChange) {
	if w.History == nil {
		return
	}
	if err := w.History.Record(ctx, change); err != nil {
		w.Logger.Error("Failed to record status change", zap.String("identifier", change.RaftID), zap.Error(err))
	}
}
