package models

import "encoding/json"

// Submission ist der Inhalt einer RAFT.json (Sidecar) bzw. die daraus aufgelöste Sicht.
// Abschnitte ohne festes Schema bleiben als rohes JSON erhalten.
type Submission struct {
	ID            string `json:"id,omitempty"`
	DataDirectory string `json:"dataDirectory,omitempty"`
	Reviewer      string `json:"reviewer,omitempty"`

	GeneralInfo     *GeneralInfo     `json:"generalInfo,omitempty"`
	AuthorInfo      *AuthorInfo      `json:"authorInfo,omitempty"`
	ObservationInfo *ObservationInfo `json:"observationInfo,omitempty"`
	Technical       json.RawMessage  `json:"technical,omitempty"`
	MeasurementInfo json.RawMessage  `json:"measurementInfo,omitempty"`
	MiscInfo        *MiscInfo        `json:"miscInfo,omitempty"`
	Attachments     json.RawMessage  `json:"attachments,omitempty"`
}

type GeneralInfo struct {
	Title      string `json:"title"`
	PostOptOut bool   `json:"postOptOut"`
	// Lokale Kopie, veraltet sobald die Registry den Status ändert.
	Status string `json:"status,omitempty"`
}

type Author struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Affiliation string `json:"affiliation,omitempty"`
	AuthorORCID string `json:"authorORCID,omitempty"`
	Email       string `json:"email,omitempty"`
}

type AuthorInfo struct {
	CorrespondingAuthor *Author         `json:"correspondingAuthor,omitempty"`
	ContributingAuthors []Author        `json:"contributingAuthors,omitempty"`
	Collaborations      json.RawMessage `json:"collaborations,omitempty"`
}

type ObservationInfo struct {
	Topic                 []string        `json:"topic,omitempty"`
	ObjectName            string          `json:"objectName"`
	Abstract              string          `json:"abstract"`
	Figure                json.RawMessage `json:"figure,omitempty"`
	Acknowledgements      string          `json:"acknowledgements,omitempty"`
	RelatedPublishedRafts json.RawMessage `json:"relatedPublishedRafts,omitempty"`
}

type MiscEntry struct {
	MiscKey   string `json:"miscKey"`
	MiscValue string `json:"miscValue"`
}

type MiscInfo struct {
	Misc []MiscEntry `json:"misc,omitempty"`
}

// Title liefert den Titel aus generalInfo oder "".
func (s *Submission) Title() string {
	if s == nil || s.GeneralInfo == nil {
		return ""
	}
	return s.GeneralInfo.Title
}

// Status liefert generalInfo.status oder "".
func (s *Submission) Status() string {
	if s == nil || s.GeneralInfo == nil {
		return ""
	}
	return s.GeneralInfo.Status
}

// CorrespondingEmail liefert die E-Mail des korrespondierenden Autors oder "".
func (s *Submission) CorrespondingEmail() string {
	if s == nil || s.AuthorInfo == nil || s.AuthorInfo.CorrespondingAuthor == nil {
		return ""
	}
	return s.AuthorInfo.CorrespondingAuthor.Email
}

// Clone erstellt eine tiefe Kopie über JSON.
func (s *Submission) Clone() (*Submission, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out Submission
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Source gibt an, woraus der Inhalt einer RaftView stammt.
type Source string

const (
	SourceSidecar  Source = "sidecar"
	SourceDataCite Source = "datacite"
)

// RaftView ist ein RAFT, bei dem Identität und Status aus der Registry stammen
// und der Inhalt aus dem Sidecar bzw. ersatzweise aus dem DataCite-XML.
type RaftView struct {
	Submission
	DOI        string `json:"doi"`
	JournalRef string `json:"journalRef,omitempty"`
	Source     Source `json:"source"`
}

// ReviewItem ist ein Eintrag der Review-Liste.
type ReviewItem struct {
	Submission
	DOI       string `json:"doi"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// ReviewList ist das Ergebnis der Review-Übersicht.
type ReviewList struct {
	Records []ReviewItem   `json:"records"`
	Counts  map[string]int `json:"counts"`
}
