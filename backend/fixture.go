package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"rafts/datacite"
	"rafts/errs"
	"rafts/models"

	"github.com/google/uuid"
)

// Statuswechsel, die die Registry selbst zulässt. Alles andere lehnt sie mit 400 ab.
var registryTransitions = map[string][]string{
	models.StatusInProgress:  {models.StatusReviewReady},
	models.StatusReviewReady: {models.StatusInReview, models.StatusInProgress},
	models.StatusInReview:    {models.StatusApproved, models.StatusRejected, models.StatusReviewReady, models.StatusInProgress},
	models.StatusRejected:    {models.StatusInProgress},
	models.StatusApproved:    {models.StatusMinted, models.StatusInProgress},
}

// FixtureData ist das Format der FIXTURE_FILE.
type FixtureData struct {
	Records  []models.DoiRecord            `json:"records"`
	Sidecars map[string]*models.Submission `json:"sidecars"`
	DataCite map[string]string             `json:"datacite"`
}

// FixtureBackend hält Registry und Sidecars im Speicher und bildet die
// Antworten der Registry nach.
type FixtureBackend struct {
	mu       sync.Mutex
	prefix   string
	records  []models.DoiRecord
	sidecars map[string]*models.Submission
	dataCite map[string]string
	failures map[string]error

	dataCiteRequests int
}

var _ SubmissionBackend = (*FixtureBackend)(nil)

func NewFixtureBackend(prefix string) *FixtureBackend {
	if prefix == "" {
		prefix = "10.80791"
	}
	return &FixtureBackend{
		prefix:   prefix,
		sidecars: map[string]*models.Submission{},
		dataCite: map[string]string{},
		failures: map[string]error{},
	}
}

// LoadFixtureBackend liest Startdaten aus einer JSON-Datei.
func LoadFixtureBackend(path, prefix string) (*FixtureBackend, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture file: %w", err)
	}
	var data FixtureData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse fixture file %s: %w", path, err)
	}
	f := NewFixtureBackend(prefix)
	f.records = append(f.records, data.Records...)
	for dir, sub := range data.Sidecars {
		f.sidecars[dir] = sub
	}
	for suffix, doc := range data.DataCite {
		f.dataCite[suffix] = doc
	}
	return f, nil
}

// AddRecord fügt einen Registry-Eintrag hinzu, optional mit Sidecar.
func (f *FixtureBackend) AddRecord(rec models.DoiRecord, sidecar *models.Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	if sidecar != nil {
		f.sidecars[rec.DataDirectory] = sidecar
	}
}

// SetDataCite hinterlegt das DataCite-XML für einen Suffix.
func (f *FixtureBackend) SetDataCite(suffix, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataCite[suffix] = doc
}

// FailSidecar lässt jeden Zugriff auf die RAFT.json in dataDirectory mit err scheitern.
func (f *FixtureBackend) FailSidecar(dataDirectory string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[dataDirectory] = err
}

// DataCiteRequests zählt die Abrufe von DataCite-XML.
func (f *FixtureBackend) DataCiteRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dataCiteRequests
}

// Record liefert den aktuellen Registry-Eintrag zu einem Suffix.
func (f *FixtureBackend) Record(suffix string) (models.DoiRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexOf(suffix); i >= 0 {
		return f.records[i], true
	}
	return models.DoiRecord{}, false
}

func (f *FixtureBackend) indexOf(suffix string) int {
	for i, rec := range f.records {
		if datacite.ExtractSuffix(rec.Identifier) == suffix {
			return i
		}
	}
	return -1
}

func (f *FixtureBackend) ListRecords(ctx context.Context) ([]models.DoiRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.DoiRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *FixtureBackend) FetchDataCite(ctx context.Context, suffix string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataCiteRequests++
	doc, ok := f.dataCite[suffix]
	if !ok {
		return nil, errs.Upstream("fetch DataCite XML", http.StatusNotFound, []byte("DOI not found"))
	}
	return []byte(doc), nil
}

func (f *FixtureBackend) DownloadSubmission(ctx context.Context, dataDirectory string) (*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[dataDirectory]; err != nil {
		return nil, err
	}
	sub, ok := f.sidecars[dataDirectory]
	if !ok {
		return nil, fmt.Errorf("%s: %w", dataDirectory, errs.ErrSidecarNotFound)
	}
	return sub.Clone()
}

func (f *FixtureBackend) UploadSubmission(ctx context.Context, dataDirectory string, sub *models.Submission) error {
	clone, err := sub.Clone()
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[dataDirectory]; err != nil {
		return err
	}
	f.sidecars[dataDirectory] = clone
	return nil
}

func (f *FixtureBackend) UpdateRecord(ctx context.Context, suffix string, update models.NodeUpdate) error {
	const op = "update DOI"
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(suffix)
	if i < 0 {
		return errs.Upstream(op, http.StatusNotFound, []byte("DOI not found"))
	}
	rec := &f.records[i]
	if update.Status != nil {
		from := strings.ToLower(strings.TrimSpace(rec.Status))
		to := *update.Status
		if from != to && !allowed(from, to) {
			return errs.Upstream(op, http.StatusBadRequest,
				[]byte(fmt.Sprintf("Invalid status change requested: from '%s' to '%s'", rec.Status, to)))
		}
		rec.Status = to
	}
	if update.Reviewer != nil {
		rec.Reviewer = *update.Reviewer
	}
	if update.JournalRef != nil {
		rec.JournalRef = *update.JournalRef
	}
	return nil
}

func allowed(from, to string) bool {
	for _, next := range registryTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (f *FixtureBackend) CreateDraft(ctx context.Context, title, creator string) (string, error) {
	suffix := "RAFTS-" + uuid.NewString()
	rec := models.DoiRecord{
		Identifier:     f.prefix + "/" + suffix,
		IdentifierType: "DOI",
		Title:          title,
		Status:         models.StatusInProgress,
		DataDirectory:  "/rafts/" + suffix + "/data",
	}
	given, family, _ := strings.Cut(strings.TrimSpace(creator), " ")
	sidecar := &models.Submission{
		GeneralInfo: &models.GeneralInfo{Title: title, Status: models.StatusInProgress},
		AuthorInfo: &models.AuthorInfo{
			CorrespondingAuthor: &models.Author{FirstName: given, LastName: family},
		},
	}
	f.AddRecord(rec, sidecar)
	return suffix, nil
}

func (f *FixtureBackend) DeleteRecord(ctx context.Context, suffix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(suffix)
	if i < 0 {
		return &errs.UpstreamError{Op: "delete DOI", StatusCode: http.StatusNotFound, Message: "DOI not found"}
	}
	delete(f.sidecars, f.records[i].DataDirectory)
	f.records = append(f.records[:i], f.records[i+1:]...)
	return nil
}
