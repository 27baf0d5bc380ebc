package models

// DoiRecord ist ein Eintrag aus der Statusliste der DOI-Registry.
// Die Registry ist maßgeblich für Identität und Status eines RAFT.
type DoiRecord struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifierType,omitempty"`
	Title          string `json:"title"`
	TitleLang      string `json:"titleLang,omitempty"`
	Status         string `json:"status"`
	DataDirectory  string `json:"dataDirectory"`
	JournalRef     string `json:"journalRef,omitempty"`
	Reviewer       string `json:"reviewer,omitempty"`

	// Nur in der eigenen Übersicht gesetzt
	DisplayStatus string `json:"displayStatus,omitempty"`
}

// NodeUpdate sind die Felder, die per doiNodeData an der Registry geändert werden.
// nil bedeutet "nicht senden"; ein leerer String entfernt den Wert.
type NodeUpdate struct {
	Status     *string `json:"status,omitempty"`
	Reviewer   *string `json:"reviewer,omitempty"`
	JournalRef *string `json:"journalRef,omitempty"`
}

// StringPtr ist ein Helfer für NodeUpdate-Literale.
func StringPtr(s string) *string {
	return &s
}
