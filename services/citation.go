package services

import (
	"fmt"
	"strings"

	"rafts/datacite"
	"rafts/errs"
	"rafts/models"
)

const maxCitedAuthors = 6

// Citation ist die Zitierangabe eines freigegebenen RAFT.
type Citation struct {
	DOI       string `json:"doi"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Link      string `json:"link"`
}

// FormatCitation erzeugt die Zitierangabe. Nur für approved, minted und published.
func FormatCitation(view *models.RaftView, year int, baseURL string) (*Citation, error) {
	switch NormalizeStatus(view.Status()) {
	case models.StatusApproved, models.StatusMinted, models.StatusPublished:
	default:
		return nil, errs.ErrNotCitable
	}
	return &Citation{
		DOI:       view.DOI,
		Status:    view.Status(),
		Reference: formatReference(view, year),
		Link:      datacite.CitationLink(baseURL, view.DOI),
	}, nil
}

// formatReference: "Doe, J., Smith, J. (2026). Titel. Journal. doi:..."
func formatReference(view *models.RaftView, year int) string {
	authors := citedAuthors(view.AuthorInfo)
	if authors == "" {
		authors = "Unknown Authors"
	}
	y := "n.d."
	if year > 0 {
		y = fmt.Sprintf("%d", year)
	}
	title := view.Title()
	if title == "" {
		title = "Untitled"
	}
	tail := ""
	if view.DOI != "" {
		tail = " doi:" + view.DOI
	}
	if view.JournalRef != "" {
		return fmt.Sprintf("%s (%s). %s. %s.%s", authors, y, title, view.JournalRef, tail)
	}
	return fmt.Sprintf("%s (%s). %s.%s", authors, y, title, tail)
}

func citedAuthors(info *models.AuthorInfo) string {
	if info == nil {
		return ""
	}
	var all []models.Author
	if info.CorrespondingAuthor != nil {
		all = append(all, *info.CorrespondingAuthor)
	}
	all = append(all, info.ContributingAuthors...)

	var names []string
	for _, a := range all {
		if name := authorName(a); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > maxCitedAuthors {
		names = append(names[:maxCitedAuthors], "et al.")
	}
	return strings.Join(names, ", ")
}

func authorName(a models.Author) string {
	last := strings.TrimSpace(a.LastName)
	first := strings.TrimSpace(a.FirstName)
	switch {
	case last == "" && first == "":
		return ""
	case first == "":
		return last
	case last == "":
		return first
	}
	initial := []rune(first)[0]
	return fmt.Sprintf("%s, %c.", last, initial)
}
