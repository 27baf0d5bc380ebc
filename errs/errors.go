// Package errs enthält die Fehlertypen, die der Dienst über Paketgrenzen hinweg unterscheidet.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNotAuthenticated: kein Zugriffstoken vorhanden. Wird nie wiederholt.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSidecarNotFound: RAFT.json fehlt im Sidecar-Store. Beim Auflösen über DataCite-XML abfangbar.
	ErrSidecarNotFound = errors.New("RAFT.json not found")
	ErrNotEditable     = errors.New("RAFT cannot be edited in its current status")
	ErrCannotSubmit    = errors.New("RAFT can only be submitted for review while in progress")
	ErrNotCitable      = errors.New("RAFT has not been approved yet")
)

const maxBodyLen = 512

// NotFoundError bedeutet: kein Registry-Eintrag passt zum angefragten Bezeichner.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No matching DOI found for %q", e.Identifier)
}

// UpstreamError beschreibt eine fehlgeschlagene Anfrage an Registry oder Sidecar-Store,
// inklusive Parse-Fehlern der Antwort.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": upstream returned %d", e.StatusCode)
	}
	if e.Body != "" {
		b.WriteString(" (")
		b.WriteString(e.Body)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream baut einen UpstreamError aus einer Nicht-2xx-Antwort.
func Upstream(op string, statusCode int, body []byte) *UpstreamError {
	return &UpstreamError{Op: op, StatusCode: statusCode, Body: trimBody(body)}
}

// Parse verpackt einen XML/JSON-Fehler als UpstreamError.
func Parse(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Message: "malformed response", Err: err}
}

// ValidationError steht für ungültige Eingaben des Aufrufers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound meldet, ob err ein NotFoundError ist.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyLen {
		cut := maxBodyLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
