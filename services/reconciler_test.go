package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rafts/backend"
	"rafts/errs"
	"rafts/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const raftID = "RAFTS-7rtut-gkryn.test"

const t2XML = `<resource xmlns="http://datacite.org/schema/kernel-4">
  <identifier identifierType="DOI">10.80791/RAFTS-7rtut-gkryn.test</identifier>
  <creators><creator><creatorName>Doe, Jane</creatorName></creator></creators>
  <titles><title>T2</title></titles>
</resource>`

func reviewReadyRecord() models.DoiRecord {
	return models.DoiRecord{
		Identifier:    "10.80791/" + raftID,
		Status:        models.StatusReviewReady,
		DataDirectory: "/d1",
		Title:         "T1",
		Reviewer:      "",
	}
}

func newReconciler(f *backend.FixtureBackend) *Reconciler {
	return NewReconciler(f, zap.NewNop(), 4)
}

func sidecar(title, status string) *models.Submission {
	return &models.Submission{GeneralInfo: &models.GeneralInfo{Title: title, Status: status}}
}

func TestResolveRaftSidecarWins(t *testing.T) {
	f := backend.NewFixtureBackend("10.80791")
	stale := sidecar("T1-stale", models.StatusInProgress)
	stale.ID = "bogus"
	stale.DataDirectory = "/elsewhere"
	stale.Reviewer = "mallory"
	f.AddRecord(reviewReadyRecord(), stale)

	view, err := newReconciler(f).ResolveRaft(context.Background(), raftID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusReviewReady, view.Status(), "registry status wins")
	assert.Equal(t, "T1-stale", view.Title(), "sidecar title wins")
	assert.Equal(t, "/d1", view.DataDirectory)
	assert.Equal(t, raftID, view.ID)
	assert.Empty(t, view.Reviewer)
	assert.Equal(t, "10.80791/"+raftID, view.DOI)
	assert.Equal(t, models.SourceSidecar, view.Source)
	assert.Zero(t, f.DataCiteRequests())
}

func TestResolveRaftSidecarWithoutGeneralInfo(t *testing.T) {
	f := backend.NewFixtureBackend("")
	f.AddRecord(reviewReadyRecord(), &models.Submission{})

	view, err := newReconciler(f).ResolveRaft(context.Background(), raftID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewReady, view.Status())
	assert.Equal(t, "T1", view.Title())
}

func TestResolveRaftFallsBackToDataCite(t *testing.T) {
	f := backend.NewFixtureBackend("")
	rec := reviewReadyRecord()
	rec.Reviewer = "bob"
	f.AddRecord(rec, nil)
	f.SetDataCite(raftID, t2XML)

	view, err := newReconciler(f).ResolveRaft(context.Background(), raftID)
	require.NoError(t, err)

	assert.Equal(t, "T2", view.Title())
	assert.Equal(t, models.StatusReviewReady, view.Status())
	assert.Equal(t, "/d1", view.DataDirectory)
	assert.Equal(t, "bob", view.Reviewer)
	assert.Equal(t, raftID, view.ID)
	assert.Equal(t, models.SourceDataCite, view.Source)
	assert.Equal(t, "Doe", view.AuthorInfo.CorrespondingAuthor.LastName)
}

func TestResolveRaftDataCiteDOIMismatch(t *testing.T) {
	f := backend.NewFixtureBackend("")
	f.AddRecord(reviewReadyRecord(), nil)
	f.SetDataCite(raftID, strings.Replace(t2XML, "10.80791/"+raftID, "10.99999/"+raftID, 1))

	core, logs := observer.New(zap.WarnLevel)
	view, err := NewReconciler(f, zap.New(core), 4).ResolveRaft(context.Background(), raftID)
	require.NoError(t, err)
	assert.Equal(t, "10.80791/"+raftID, view.DOI)

	warnings := logs.FilterMessage("DataCite DOI differs from registry, keeping registry identifier").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "10.99999/"+raftID, warnings[0].ContextMap()["datacite"])

	f.SetDataCite(raftID, t2XML)
	_, err = NewReconciler(f, zap.New(core), 4).ResolveRaft(context.Background(), raftID)
	require.NoError(t, err)
	assert.Len(t, logs.FilterMessage("DataCite DOI differs from registry, keeping registry identifier").All(), 1)
}

func TestResolveRaftFallbackAfterSidecarError(t *testing.T) {
	f := backend.NewFixtureBackend("")
	f.AddRecord(reviewReadyRecord(), sidecar("T1", models.StatusInProgress))
	f.FailSidecar("/d1", &errs.UpstreamError{Op: "download RAFT.json", StatusCode: 500})
	f.SetDataCite(raftID, t2XML)

	view, err := newReconciler(f).ResolveRaft(context.Background(), raftID)
	require.NoError(t, err)
	assert.Equal(t, models.SourceDataCite, view.Source)
}

func TestResolveRaftFallbackFailure(t *testing.T) {
	f := backend.NewFixtureBackend("")
	f.AddRecord(reviewReadyRecord(), nil)

	_, err := newReconciler(f).ResolveRaft(context.Background(), raftID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSidecarNotFound)

	var up *errs.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, 404, up.StatusCode)
	assert.Equal(t, 1, f.DataCiteRequests())
}

func TestResolveRaftMalformedDataCite(t *testing.T) {
	f := backend.NewFixtureBackend("")
	f.AddRecord(reviewReadyRecord(), nil)
	f.SetDataCite(raftID, "<resource><titles>")

	_, err := newReconciler(f).ResolveRaft(context.Background(), raftID)
	assert.ErrorContains(t, err, "malformed response")
}

func TestResolveRaftNotFound(t *testing.T) {
	f := backend.NewFixtureBackend("")
	f.AddRecord(reviewReadyRecord(), nil)

	_, err := newReconciler(f).ResolveRaft(context.Background(), "unknown-id")
	assert.True(t, errs.IsNotFound(err))
	assert.Zero(t, f.DataCiteRequests(), "no XML request without a registry match")

	_, err = newReconciler(f).ResolveRaft(context.Background(), "")
	var ve *errs.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestResolveRaftAmbiguousSuffixTakesFirst(t *testing.T) {
	f := backend.NewFixtureBackend("")
	f.AddRecord(models.DoiRecord{Identifier: "10.1/RAFTS-x", Status: models.StatusApproved, DataDirectory: "/first"}, sidecar("first", ""))
	f.AddRecord(models.DoiRecord{Identifier: "10.2/RAFTS-x", Status: models.StatusRejected, DataDirectory: "/second"}, sidecar("second", ""))

	view, err := newReconciler(f).ResolveRaft(context.Background(), "RAFTS-x")
	require.NoError(t, err)
	assert.Equal(t, "/first", view.DataDirectory)
	assert.Equal(t, models.StatusApproved, view.Status())
}

func reviewFixture() *backend.FixtureBackend {
	f := backend.NewFixtureBackend("10.80791")
	add := func(suffix, status string) {
		dir := "/" + suffix
		sub := sidecar(suffix+" title", models.StatusInProgress)
		sub.AuthorInfo = &models.AuthorInfo{CorrespondingAuthor: &models.Author{Email: suffix + "@example.org"}}
		f.AddRecord(models.DoiRecord{Identifier: "10.80791/" + suffix, Status: status, DataDirectory: dir}, sub)
	}
	add("RAFTS-1", models.StatusInReview)
	add("RAFTS-2", models.StatusReviewReady)
	add("RAFTS-3", models.StatusInReview)
	return f
}

func TestListForReviewUnderReview(t *testing.T) {
	list, err := newReconciler(reviewFixture()).ListForReview(context.Background(), "under_review")
	require.NoError(t, err)

	require.Len(t, list.Records, 2)
	assert.Equal(t, "RAFTS-1", list.Records[0].ID, "registry order is preserved")
	assert.Equal(t, "RAFTS-3", list.Records[1].ID)
	assert.Equal(t, "10.80791/RAFTS-1", list.Records[0].DOI)
	assert.Equal(t, "RAFTS-1@example.org", list.Records[0].CreatedBy)
	assert.Equal(t, models.StatusInReview, list.Records[0].Status())

	assert.Equal(t, 2, list.Counts[models.OptionUnderReview])
	assert.Equal(t, 1, list.Counts[models.OptionReview])
	assert.Equal(t, 0, list.Counts[models.OptionApproved])
	assert.Equal(t, 0, list.Counts[models.OptionRejected])
}

func TestListForReviewDefaultsToReviewReady(t *testing.T) {
	r := newReconciler(reviewFixture())

	for _, filter := range []string{"", "review", "review_ready"} {
		list, err := r.ListForReview(context.Background(), filter)
		require.NoError(t, err, filter)
		require.Len(t, list.Records, 1, filter)
		assert.Equal(t, "RAFTS-2", list.Records[0].ID)
	}
}

func TestListForReviewUnknownFilter(t *testing.T) {
	_, err := newReconciler(reviewFixture()).ListForReview(context.Background(), "published")
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "status", ve.Field)
}

func TestListForReviewSkipsUnreadableSidecars(t *testing.T) {
	f := reviewFixture()
	f.FailSidecar("/RAFTS-1", errors.New("vault timeout"))

	list, err := NewReconciler(f, zap.NewNop(), 1).ListForReview(context.Background(), "under_review")
	require.NoError(t, err)
	require.Len(t, list.Records, 1)
	assert.Equal(t, "RAFTS-3", list.Records[0].ID)
	assert.Equal(t, 2, list.Counts[models.OptionUnderReview], "counts still cover every record")
	assert.Zero(t, f.DataCiteRequests(), "no XML fallback in listings")
}

func TestListForReviewCountsCaseInsensitive(t *testing.T) {
	f := reviewFixture()
	f.AddRecord(models.DoiRecord{Identifier: "10.80791/RAFTS-4", Status: "Rejected", DataDirectory: "/RAFTS-4"}, nil)
	f.AddRecord(models.DoiRecord{Identifier: "10.80791/RAFTS-5", Status: models.StatusInProgress, DataDirectory: "/RAFTS-5"}, nil)
	f.AddRecord(models.DoiRecord{Identifier: "10.80791/RAFTS-6", Status: models.StatusMinted, DataDirectory: "/RAFTS-6"}, nil)

	list, err := newReconciler(f).ListForReview(context.Background(), "rejected")
	require.NoError(t, err)

	assert.Equal(t, 1, list.Counts[models.OptionRejected])
	assert.True(t, IsEditable("Rejected"))
	assert.Empty(t, list.Records, "rejected record has no sidecar")

	total := 0
	for _, n := range list.Counts {
		total += n
	}
	assert.Equal(t, 4, total)
	assert.LessOrEqual(t, total, 6)
	assert.Len(t, list.Counts, 4)
}

func TestListRecordsEnrichesAndSorts(t *testing.T) {
	f := backend.NewFixtureBackend("")
	f.AddRecord(models.DoiRecord{Identifier: "10.1/2", Title: "registry 2", Status: models.StatusInProgress, DataDirectory: "/2"}, sidecar("sidecar 2", ""))
	f.AddRecord(models.DoiRecord{Identifier: "10.1/10", Title: "registry 10", Status: models.StatusMinted, DataDirectory: "/10"}, nil)
	f.AddRecord(models.DoiRecord{Identifier: "10.1/7", Title: "registry 7", Status: models.StatusInReview, DataDirectory: "/7"}, sidecar("", ""))

	records, err := newReconciler(f).ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "10.1/10", records[0].Identifier)
	assert.Equal(t, "registry 10", records[0].Title)
	assert.Equal(t, "published", records[0].DisplayStatus)

	assert.Equal(t, "10.1/7", records[1].Identifier)
	assert.Equal(t, "registry 7", records[1].Title, "empty sidecar title is ignored")
	assert.Equal(t, "under_review", records[1].DisplayStatus)

	assert.Equal(t, "sidecar 2", records[2].Title)
	assert.Equal(t, "draft", records[2].DisplayStatus)
}
