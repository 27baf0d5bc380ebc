package datacite

import (
	"strings"

	"rafts/models"
)

// Overrides sind Werte aus dem Registry-Eintrag, die beim Umwandeln einfließen.
type Overrides struct {
	Title  string
	Status string
}

// ToSubmission baut aus einem DataCite-Dokument eine Submission.
// Der XML-Titel hat Vorrang vor ov.Title, der Status kommt aus ov.
func ToSubmission(r *Resource, ov Overrides) *models.Submission {
	title := r.Title()
	if title == "" {
		title = ov.Title
	}
	status := ov.Status
	if status == "" {
		status = models.StatusInProgress
	}

	sub := &models.Submission{
		GeneralInfo: &models.GeneralInfo{
			Title:  title,
			Status: status,
		},
		AuthorInfo: &models.AuthorInfo{},
		ObservationInfo: &models.ObservationInfo{
			Topic:    []string{"other"},
			Abstract: r.Abstract(),
		},
	}

	for i := range r.Creators {
		author := toAuthor(&r.Creators[i])
		if i == 0 {
			sub.AuthorInfo.CorrespondingAuthor = &author
			continue
		}
		sub.AuthorInfo.ContributingAuthors = append(sub.AuthorInfo.ContributingAuthors, author)
	}
	return sub
}

func toAuthor(c *Creator) models.Author {
	given, family := c.Name()
	return models.Author{
		FirstName:   given,
		LastName:    family,
		Affiliation: c.Affiliation(),
		AuthorORCID: c.ORCID(),
	}
}

// MapStatus übersetzt einen Registry-Status in den Anzeige-Status der Oberfläche.
func MapStatus(status string) string {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "progress"), strings.Contains(s, "draft"):
		return "draft"
	case strings.Contains(s, "under"), strings.Contains(s, "in review"):
		return "under_review"
	case strings.Contains(s, "review"):
		return "review_ready"
	case strings.Contains(s, "approved"):
		return "approved"
	case strings.Contains(s, "rejected"):
		return "rejected"
	case strings.Contains(s, "minted"), strings.Contains(s, "published"), strings.Contains(s, "completed"):
		return "published"
	default:
		return "draft"
	}
}
