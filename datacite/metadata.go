package datacite

import (
	"strconv"
	"strings"
)

const (
	draftIdentifier = "10.5072/draft"
	publisher       = "NRC CADC"
)

type textNode struct {
	Value string `json:"$"`
}

type attrTextNode struct {
	Value string            `json:"$"`
	Attrs map[string]string `json:"@,omitempty"`
}

// DraftMetadata ist das minimale DataCite-JSON, mit dem die Registry einen Entwurf anlegt.
type DraftMetadata struct {
	Resource draftResource `json:"resource"`
}

type draftResource struct {
	Namespace       string        `json:"@xmlns"`
	Identifier      attrTextNode  `json:"identifier"`
	Creators        draftCreators `json:"creators"`
	Titles          draftTitles   `json:"titles"`
	Publisher       textNode      `json:"publisher"`
	PublicationYear textNode      `json:"publicationYear"`
	ResourceType    attrTextNode  `json:"resourceType"`
	Language        textNode      `json:"language"`
}

type draftCreators struct {
	Creator []draftCreator `json:"$"`
}

type draftCreator struct {
	Creator struct {
		CreatorName attrTextNode `json:"creatorName"`
		GivenName   textNode     `json:"givenName"`
		FamilyName  textNode     `json:"familyName"`
	} `json:"creator"`
}

type draftTitles struct {
	Title []draftTitle `json:"$"`
}

type draftTitle struct {
	Title attrTextNode `json:"title"`
}

// BuildDraftMetadata erzeugt die Metadaten für einen neuen Entwurf.
// creator wird als "Vorname Nachname" erwartet.
func BuildDraftMetadata(title, creator string, year int) DraftMetadata {
	given, family := splitName(creator)

	var c draftCreator
	c.Creator.CreatorName = attrTextNode{Value: family + ", " + given, Attrs: map[string]string{"nameType": "Personal"}}
	c.Creator.GivenName = textNode{Value: given}
	c.Creator.FamilyName = textNode{Value: family}

	titles := draftTitles{Title: []draftTitle{
		{Title: attrTextNode{Value: title, Attrs: map[string]string{"xml:lang": "en-US"}}},
	}}

	return DraftMetadata{Resource: draftResource{
		Namespace:       "http://datacite.org/schema/kernel-4",
		Identifier:      attrTextNode{Value: draftIdentifier, Attrs: map[string]string{"identifierType": "DOI"}},
		Creators:        draftCreators{Creator: []draftCreator{c}},
		Titles:          titles,
		Publisher:       textNode{Value: publisher},
		PublicationYear: textNode{Value: strconv.Itoa(year)},
		ResourceType:    attrTextNode{Value: "RAFT Announcement", Attrs: map[string]string{"resourceTypeGeneral": "Dataset"}},
		Language:        textNode{Value: "en"},
	}}
}

func splitName(full string) (given, family string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "Unknown", "Unknown"
	case 1:
		return parts[0], parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
