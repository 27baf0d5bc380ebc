package models

// Status-Werte, wie sie die Registry in DoiRecord.Status speichert.
const (
	StatusInProgress  = "in progress"
	StatusReviewReady = "review ready"
	StatusInReview    = "in review"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusMinted      = "minted"
	StatusPublished   = "published"
)

// Filteroptionen der Review-Ansicht.
const (
	OptionReview      = "review"
	OptionUnderReview = "under_review"
	OptionApproved    = "approved"
	OptionRejected    = "rejected"
)
