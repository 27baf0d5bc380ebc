package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"rafts/backend"
	"rafts/datacite"
	"rafts/errs"
	"rafts/metrics"
	"rafts/models"

	"go.uber.org/zap"
)

// Reconciler führt Registry-Einträge und Sidecars zu einer Sicht zusammen.
// Identität und Status kommen immer aus der Registry.
type Reconciler struct {
	Backend     backend.SubmissionBackend
	Logger      *zap.Logger
	Concurrency int
}

func NewReconciler(b backend.SubmissionBackend, logger *zap.Logger, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{Backend: b, Logger: logger, Concurrency: concurrency}
}

// Lookup sucht den Registry-Eintrag, dessen Bezeichner auf "/"+identifier endet.
// Bei mehreren Treffern gewinnt der erste in Registry-Reihenfolge.
func (r *Reconciler) Lookup(ctx context.Context, identifier string) (models.DoiRecord, error) {
	if identifier == "" {
		return models.DoiRecord{}, errs.Invalid("id", "identifier must not be empty")
	}
	records, err := r.Backend.ListRecords(ctx)
	if err != nil {
		return models.DoiRecord{}, err
	}
	return r.match(records, identifier)
}

func (r *Reconciler) match(records []models.DoiRecord, identifier string) (models.DoiRecord, error) {
	var found *models.DoiRecord
	matches := 0
	for i := range records {
		if !datacite.MatchesSuffix(records[i].Identifier, identifier) {
			continue
		}
		matches++
		if found == nil {
			found = &records[i]
		}
	}
	if found == nil {
		return models.DoiRecord{}, &errs.NotFoundError{Identifier: identifier}
	}
	if matches > 1 {
		r.Logger.Warn("Ambiguous DOI suffix, using first match",
			zap.String("identifier", identifier),
			zap.String("match", found.Identifier),
			zap.Int("matches", matches))
	}
	return *found, nil
}

// ResolveRaft liefert die zusammengeführte Sicht auf einen RAFT.
// Fehlt die RAFT.json, wird der Inhalt aus dem DataCite-XML rekonstruiert.
func (r *Reconciler) ResolveRaft(ctx context.Context, identifier string) (*models.RaftView, error) {
	log := r.Logger.With(zap.String("identifier", identifier))

	record, err := r.Lookup(ctx, identifier)
	if err != nil {
		metrics.Resolutions.WithLabelValues("failed").Inc()
		return nil, err
	}

	sub, sidecarErr := r.Backend.DownloadSubmission(ctx, record.DataDirectory)
	if sidecarErr == nil && sub != nil {
		metrics.Resolutions.WithLabelValues(string(models.SourceSidecar)).Inc()
		return applyRegistry(sub, record, identifier, models.SourceSidecar), nil
	}
	if sidecarErr == nil {
		sidecarErr = errs.ErrSidecarNotFound
	}
	if errors.Is(sidecarErr, errs.ErrNotAuthenticated) {
		return nil, sidecarErr
	}
	log.Info("RAFT.json unavailable, falling back to DataCite XML",
		zap.String("dataDirectory", record.DataDirectory), zap.Error(sidecarErr))

	sub, err = r.fromDataCite(ctx, identifier, record)
	if err != nil {
		metrics.Resolutions.WithLabelValues("failed").Inc()
		log.Error("DataCite fallback failed", zap.Error(err))
		return nil, fmt.Errorf("RAFT.json unavailable and DataCite fallback failed: %w", errors.Join(sidecarErr, err))
	}
	metrics.Resolutions.WithLabelValues(string(models.SourceDataCite)).Inc()
	return applyRegistry(sub, record, identifier, models.SourceDataCite), nil
}

func (r *Reconciler) fromDataCite(ctx context.Context, identifier string, record models.DoiRecord) (*models.Submission, error) {
	doc, err := r.Backend.FetchDataCite(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if doi, ok := datacite.ExtractDOI(string(doc)); ok && !strings.EqualFold(doi, record.Identifier) {
		r.Logger.Warn("DataCite DOI differs from registry, keeping registry identifier",
			zap.String("registry", record.Identifier), zap.String("datacite", doi))
	}
	res, err := datacite.ParseResource(doc)
	if err != nil {
		return nil, err
	}
	return datacite.ToSubmission(res, datacite.Overrides{Title: record.Title, Status: record.Status}), nil
}

// applyRegistry überschreibt Status und Identitätsfelder mit den Registry-Werten.
func applyRegistry(sub *models.Submission, record models.DoiRecord, id string, source models.Source) *models.RaftView {
	if sub.GeneralInfo == nil {
		sub.GeneralInfo = &models.GeneralInfo{Title: record.Title}
	}
	sub.GeneralInfo.Status = record.Status
	sub.ID = id
	sub.DataDirectory = record.DataDirectory
	sub.Reviewer = record.Reviewer
	return &models.RaftView{Submission: *sub, DOI: record.Identifier, JournalRef: record.JournalRef, Source: source}
}

// ListForReview liefert die Review-Liste für eine Filteroption samt Zählern.
// Einträge ohne lesbare RAFT.json werden übersprungen, ohne DataCite-Fallback.
func (r *Reconciler) ListForReview(ctx context.Context, filter string) (*models.ReviewList, error) {
	status, err := BackendStatusFor(filter)
	if err != nil {
		return nil, err
	}
	records, err := r.Backend.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []models.DoiRecord
	for _, rec := range records {
		if NormalizeStatus(rec.Status) == status {
			candidates = append(candidates, rec)
		}
	}

	items := make([]*models.ReviewItem, len(candidates))
	r.forEach(len(candidates), func(i int) {
		rec := candidates[i]
		sub, err := r.Backend.DownloadSubmission(ctx, rec.DataDirectory)
		if err != nil || sub == nil {
			metrics.ReviewListSkipped.Inc()
			r.Logger.Warn("Skipping record without readable RAFT.json",
				zap.String("identifier", rec.Identifier), zap.Error(err))
			return
		}
		suffix := datacite.ExtractSuffix(rec.Identifier)
		view := applyRegistry(sub, rec, suffix, models.SourceSidecar)
		items[i] = &models.ReviewItem{
			Submission: view.Submission,
			DOI:        rec.Identifier,
			CreatedBy:  view.CorrespondingEmail(),
		}
	})

	list := &models.ReviewList{Records: []models.ReviewItem{}, Counts: CountByReviewStatus(records)}
	for _, item := range items {
		if item != nil {
			list.Records = append(list.Records, *item)
		}
	}
	r.Logger.Info("Review list assembled",
		zap.String("status", status),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(list.Records)))
	return list, nil
}

// CountByReviewStatus zählt jeden Eintrag höchstens einmal in einem der vier Buckets.
func CountByReviewStatus(records []models.DoiRecord) map[string]int {
	counts := make(map[string]int, len(ReviewOptions))
	for _, option := range ReviewOptions {
		counts[option] = 0
	}
	for _, rec := range records {
		if option, ok := ReviewBucket(rec.Status); ok {
			counts[option]++
		}
	}
	return counts
}

// ListRecords liefert die eigenen DOIs, Titel aus der RAFT.json wo vorhanden,
// absteigend nach Nummer sortiert.
func (r *Reconciler) ListRecords(ctx context.Context) ([]models.DoiRecord, error) {
	records, err := r.Backend.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	r.forEach(len(records), func(i int) {
		rec := &records[i]
		rec.DisplayStatus = datacite.MapStatus(rec.Status)
		if rec.DataDirectory == "" {
			return
		}
		sub, err := r.Backend.DownloadSubmission(ctx, rec.DataDirectory)
		if err != nil {
			r.Logger.Debug("No RAFT.json for title enrichment",
				zap.String("identifier", rec.Identifier), zap.Error(err))
			return
		}
		if title := sub.Title(); title != "" {
			rec.Title = title
		}
	})
	return datacite.SortByIdentifierNumber(records), nil
}

// forEach ruft fn für 0..n-1 mit höchstens r.Concurrency parallelen Aufrufen auf.
func (r *Reconciler) forEach(n int, fn func(i int)) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.Concurrency)
	for i := 0; i < n; i++ {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			fn(i)
		}(i)
	}
	wg.Wait()
}
