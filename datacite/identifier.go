package datacite

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rafts/models"
)

var (
	doiIdentifierRegex = regexp.MustCompile(`<identifier[^>]*identifierType="DOI"[^>]*>\s*([^<]+?)\s*</identifier>`)
	anyIdentifierRegex = regexp.MustCompile(`<identifier[^>]*>\s*([^<]+?)\s*</identifier>`)
)

// ExtractSuffix liefert das letzte durch "/" getrennte Segment eines Bezeichners.
// Ohne "/" wird der Bezeichner unverändert zurückgegeben, mit abschließendem "/" ist das Ergebnis "".
//
//	"10.80791/RAFTS-abc" -> "RAFTS-abc"
//	"RAFTS-abc"          -> "RAFTS-abc"
func ExtractSuffix(identifier string) string {
	if i := strings.LastIndex(identifier, "/"); i >= 0 {
		return identifier[i+1:]
	}
	return identifier
}

// MatchesSuffix meldet, ob identifier auf "/"+suffix endet.
func MatchesSuffix(identifier, suffix string) bool {
	return suffix != "" && strings.HasSuffix(identifier, "/"+suffix)
}

// ExtractDOI holt den DOI-Bezeichner aus einem DataCite-Dokument, ohne es vollständig zu parsen.
func ExtractDOI(doc string) (string, bool) {
	if m := doiIdentifierRegex.FindStringSubmatch(doc); m != nil {
		return m[1], true
	}
	if m := anyIdentifierRegex.FindStringSubmatch(doc); m != nil {
		return m[1], true
	}
	return "", false
}

// SortByIdentifierNumber sortiert absteigend nach dem numerischen Suffix.
// Nicht-numerische Suffixe folgen danach in ursprünglicher Reihenfolge.
func SortByIdentifierNumber(records []models.DoiRecord) []models.DoiRecord {
	out := make([]models.DoiRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, aOK := identifierNumber(out[i].Identifier)
		b, bOK := identifierNumber(out[j].Identifier)
		switch {
		case aOK && bOK:
			return a > b
		case aOK:
			return true
		default:
			return false
		}
	})
	return out
}

// identifierNumber liest das Suffix als endliche Zahl. NaN und Inf gelten als nicht numerisch.
func identifierNumber(identifier string) (float64, bool) {
	n, err := strconv.ParseFloat(ExtractSuffix(identifier), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// CitationLink baut den Link zur Landing-Page eines DOI.
func CitationLink(baseURL, doi string) string {
	return baseURL + "?doi=" + url.QueryEscape(doi)
}
