package datacite

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"

	"rafts/errs"
)

var errEmptyDocument = errors.New("empty XML document")

// Resource ist der Teil eines DataCite-Kernel-4-Dokuments, den der Dienst auswertet.
type Resource struct {
	Identifier      *XMLValue  `xml:"identifier"`
	Creators        []Creator  `xml:"creators>creator"`
	Titles          []XMLValue `xml:"titles>title"`
	Publisher       *XMLValue  `xml:"publisher"`
	PublicationYear *XMLValue  `xml:"publicationYear"`
	ResourceType    *XMLValue  `xml:"resourceType"`
	Language        *XMLValue  `xml:"language"`
	Dates           []XMLValue `xml:"dates>date"`
	Descriptions    []XMLValue `xml:"descriptions>description"`
}

type Creator struct {
	CreatorName     *XMLValue  `xml:"creatorName"`
	GivenName       *XMLValue  `xml:"givenName"`
	FamilyName      *XMLValue  `xml:"familyName"`
	Affiliations    []XMLValue `xml:"affiliation"`
	NameIdentifiers []XMLValue `xml:"nameIdentifier"`
}

// ParseResource liest ein einzelnes DataCite-Dokument.
func ParseResource(data []byte) (*Resource, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errs.Parse("parse DataCite XML", errEmptyDocument)
	}
	var r Resource
	if err := xml.Unmarshal(data, &r); err != nil {
		return nil, errs.Parse("parse DataCite XML", err)
	}
	return &r, nil
}

// Title liefert den ersten nicht-leeren Titel.
func (r *Resource) Title() string {
	for i := range r.Titles {
		if t := r.Titles[i].Text(); t != "" {
			return t
		}
	}
	return ""
}

// Abstract liefert die erste Beschreibung vom Typ Abstract.
func (r *Resource) Abstract() string {
	for i := range r.Descriptions {
		if strings.EqualFold(r.Descriptions[i].Attr("descriptionType"), "Abstract") {
			return r.Descriptions[i].Text()
		}
	}
	return ""
}

// Name zerlegt den Autorennamen in Vor- und Nachname.
// givenName/familyName haben Vorrang vor creatorName ("Familie, Vorname" oder "Vorname Familie").
func (c *Creator) Name() (given, family string) {
	given, family = c.GivenName.Text(), c.FamilyName.Text()
	if given != "" || family != "" {
		return given, family
	}
	full := c.CreatorName.Text()
	if before, after, ok := strings.Cut(full, ","); ok {
		return strings.TrimSpace(after), strings.TrimSpace(before)
	}
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func (c *Creator) Affiliation() string {
	if len(c.Affiliations) == 0 {
		return ""
	}
	return c.Affiliations[0].Text()
}

// ORCID liefert die ORCID aus den nameIdentifiers oder "".
func (c *Creator) ORCID() string {
	for i := range c.NameIdentifiers {
		if strings.EqualFold(c.NameIdentifiers[i].Attr("nameIdentifierScheme"), "orcid") {
			return c.NameIdentifiers[i].Text()
		}
	}
	return ""
}
