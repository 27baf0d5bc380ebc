package services

import (
	"strings"

	"rafts/errs"
	"rafts/models"
)

// ReviewOptions sind die Zähl-Buckets der Review-Ansicht in fester Reihenfolge.
var ReviewOptions = []string{
	models.OptionReview,
	models.OptionUnderReview,
	models.OptionApproved,
	models.OptionRejected,
}

var optionToStatus = map[string]string{
	models.OptionReview:      models.StatusReviewReady,
	"review_ready":           models.StatusReviewReady,
	models.OptionUnderReview: models.StatusInReview,
	models.OptionApproved:    models.StatusApproved,
	models.OptionRejected:    models.StatusRejected,
}

var statusToOption = map[string]string{
	models.StatusReviewReady: models.OptionReview,
	models.StatusInReview:    models.OptionUnderReview,
	models.StatusApproved:    models.OptionApproved,
	models.StatusRejected:    models.OptionRejected,
}

// NormalizeStatus vergleicht Registry-Status ohne Rücksicht auf Groß-/Kleinschreibung.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// BackendStatusFor übersetzt eine Filteroption in den Registry-Status.
// Leerer Filter bedeutet "review ready".
func BackendStatusFor(option string) (string, error) {
	if option == "" {
		return models.StatusReviewReady, nil
	}
	status, ok := optionToStatus[strings.ToLower(option)]
	if !ok {
		return "", errs.Invalid("status", "unknown review status %q (expected one of %s)",
			option, strings.Join(ReviewOptions, ", "))
	}
	return status, nil
}

// ReviewBucket liefert den Zähl-Bucket für einen Registry-Status, falls es einen gibt.
func ReviewBucket(status string) (string, bool) {
	option, ok := statusToOption[NormalizeStatus(status)]
	return option, ok
}

// IsEditable: Autoren dürfen nur in "in progress" und "rejected" bearbeiten.
func IsEditable(status string) bool {
	s := NormalizeStatus(status)
	return s == models.StatusInProgress || s == models.StatusRejected
}

// CanSubmitForReview: Einreichen nur aus "in progress".
func CanSubmitForReview(status string) bool {
	return NormalizeStatus(status) == models.StatusInProgress
}

// Transition ist eine Zeile der Statusmaschine.
type Transition struct {
	From    string `json:"from"`
	Trigger string `json:"trigger"`
	To      string `json:"to"`
}

var transitions = []Transition{
	{models.StatusInProgress, "submit-for-review", models.StatusReviewReady},
	{models.StatusReviewReady, "claim", models.StatusInReview},
	{models.StatusInReview, "approve", models.StatusApproved},
	{models.StatusInReview, "reject", models.StatusRejected},
	{models.StatusRejected, "edit", models.StatusInProgress},
	{models.StatusApproved, "mint", models.StatusMinted},
}

// Transitions liefert eine Kopie der Übergangstabelle.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// CanTransition prüft einen Übergang gegen die Tabelle. Verbindlich bleibt die Antwort der Registry.
func CanTransition(from, to string) bool {
	f, t := NormalizeStatus(from), NormalizeStatus(to)
	for _, tr := range transitions {
		if tr.From == f && tr.To == t {
			return true
		}
	}
	return false
}
