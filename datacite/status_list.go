package datacite

import (
	"bytes"
	"encoding/xml"

	"rafts/errs"
	"rafts/models"
)

type statusList struct {
	XMLName xml.Name
	Items   []statusItem `xml:"doistatus"`
}

type statusItem struct {
	Identifier    *XMLValue `xml:"identifier"`
	Title         *XMLValue `xml:"title"`
	Status        *XMLValue `xml:"status"`
	DataDirectory *XMLValue `xml:"dataDirectory"`
	JournalRef    *XMLValue `xml:"journalRef"`
	Reviewer      *XMLValue `xml:"reviewer"`
}

// ParseStatusList liest die Statusliste der Registry (<doiStatuses><doistatus>...).
// Ein anderes Wurzelelement ergibt eine leere Liste.
func ParseStatusList(data []byte) ([]models.DoiRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errs.Parse("parse DOI list", errEmptyDocument)
	}
	var list statusList
	if err := xml.Unmarshal(data, &list); err != nil {
		return nil, errs.Parse("parse DOI list", err)
	}
	if list.XMLName.Local != "doiStatuses" {
		return []models.DoiRecord{}, nil
	}

	records := make([]models.DoiRecord, 0, len(list.Items))
	for _, item := range list.Items {
		records = append(records, models.DoiRecord{
			Identifier:     item.Identifier.Text(),
			IdentifierType: item.Identifier.Attr("identifierType"),
			Title:          item.Title.Text(),
			TitleLang:      item.Title.Attr("xml:lang"),
			Status:         item.Status.Text(),
			DataDirectory:  item.DataDirectory.Text(),
			JournalRef:     item.JournalRef.Text(),
			Reviewer:       item.Reviewer.Text(),
		})
	}
	return records, nil
}
