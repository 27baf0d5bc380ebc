package services

import (
	"fmt"
	"testing"

	"rafts/errs"
	"rafts/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const landing = "https://www.canfar.net/citation/landing"

func approvedView() *models.RaftView {
	return &models.RaftView{
		Submission: models.Submission{
			GeneralInfo: &models.GeneralInfo{Title: "A new nova in M31", Status: models.StatusApproved},
			AuthorInfo: &models.AuthorInfo{
				CorrespondingAuthor: &models.Author{FirstName: "Jane", LastName: "Doe"},
				ContributingAuthors: []models.Author{{FirstName: "John", LastName: "Smith"}, {LastName: "Collaboration"}},
			},
		},
		DOI:        "10.80791/RAFTS-x",
		JournalRef: "ATel 17000",
	}
}

func TestFormatCitation(t *testing.T) {
	c, err := FormatCitation(approvedView(), 2026, landing)
	require.NoError(t, err)

	assert.Equal(t, "Doe, J., Smith, J., Collaboration (2026). A new nova in M31. ATel 17000. doi:10.80791/RAFTS-x", c.Reference)
	assert.Equal(t, landing+"?doi=10.80791%2FRAFTS-x", c.Link)
	assert.Equal(t, "10.80791/RAFTS-x", c.DOI)
}

func TestFormatCitationWithoutJournalOrAuthors(t *testing.T) {
	v := approvedView()
	v.JournalRef = ""
	v.AuthorInfo = nil
	v.GeneralInfo.Status = models.StatusMinted

	c, err := FormatCitation(v, 0, landing)
	require.NoError(t, err)
	assert.Equal(t, "Unknown Authors (n.d.). A new nova in M31. doi:10.80791/RAFTS-x", c.Reference)
}

func TestFormatCitationTruncatesAuthors(t *testing.T) {
	v := approvedView()
	v.AuthorInfo.ContributingAuthors = nil
	for i := 0; i < 8; i++ {
		v.AuthorInfo.ContributingAuthors = append(v.AuthorInfo.ContributingAuthors,
			models.Author{FirstName: "A", LastName: fmt.Sprintf("Author%d", i)})
	}

	c, err := FormatCitation(v, 2026, landing)
	require.NoError(t, err)
	assert.Contains(t, c.Reference, "Author4, A., et al. (2026)")
	assert.NotContains(t, c.Reference, "Author5")
}

func TestFormatCitationPublishedRecord(t *testing.T) {
	v := approvedView()
	v.GeneralInfo.Status = "Published"

	c, err := FormatCitation(v, 2026, landing)
	require.NoError(t, err)
	assert.Equal(t, "10.80791/RAFTS-x", c.DOI)
}

func TestFormatCitationRequiresApproval(t *testing.T) {
	v := approvedView()
	v.GeneralInfo.Status = models.StatusInReview
	_, err := FormatCitation(v, 2026, landing)
	assert.ErrorIs(t, err, errs.ErrNotCitable)
}
