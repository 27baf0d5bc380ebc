// Package datacite wandelt die XML-Antworten der DOI-Registry in Modelle um.
package datacite

import (
	"encoding/xml"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// XMLValue ist ein Element, das entweder nur Text trägt oder Text mit Attributen.
// Alle Zugriffe auf den Text laufen über Text().
type XMLValue struct {
	Value string
	Attrs map[string]string
}

// UnmarshalXML implementiert xml.Unmarshaler.
func (v *XMLValue) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var content struct {
		Text string `xml:",chardata"`
	}
	if err := d.DecodeElement(&content, &start); err != nil {
		return err
	}
	v.Value = content.Text
	v.Attrs = nil
	if len(start.Attr) > 0 {
		v.Attrs = make(map[string]string, len(start.Attr))
		for _, a := range start.Attr {
			v.Attrs[attrName(a.Name)] = a.Value
		}
	}
	return nil
}

// Text liefert den getrimmten, NFC-normalisierten Text. nil ergibt "".
func (v *XMLValue) Text() string {
	if v == nil {
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(v.Value))
}

// Attr liefert ein Attribut, z.B. "identifierType" oder "xml:lang".
func (v *XMLValue) Attr(name string) string {
	if v == nil {
		return ""
	}
	return v.Attrs[name]
}

func attrName(n xml.Name) string {
	switch n.Space {
	case "":
		return n.Local
	case xmlNamespace, "xml":
		return "xml:" + n.Local
	default:
		return n.Local
	}
}
