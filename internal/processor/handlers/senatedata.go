package handlers

import (
	"encoding/xml"
	"strings"

	"lawfeed/internal/processor"
)

// senateData is the synthetic document extraction wraps around every
// non-bill record.
type senateData struct {
	XMLName     xml.Name          `xml:"SENATEDATA"`
	Calendars   []calendarXML     `xml:"sencalendar"`
	ActiveLists []activeListXML   `xml:"sencalendaractive"`
	Committees  []committeeSetXML `xml:"sencommmem"`
}

type calendarXML struct {
	Number        string `xml:"no,attr"`
	SessionYear   string `xml:"sessyr,attr"`
	Year          string `xml:"year,attr"`
	Supplementals []struct {
		ID string `xml:"id,attr"`
	} `xml:"supplemental"`
}

type activeListXML struct {
	Number      string `xml:"no,attr"`
	SessionYear string `xml:"sessyr,attr"`
	Year        string `xml:"year,attr"`
	Sequences   []struct {
		Number string `xml:"no,attr"`
	} `xml:"sequence"`
}

type committeeSetXML struct {
	SessionYear string         `xml:"sessyr,attr"`
	Committees  []committeeXML `xml:"committee"`
}

type committeeXML struct {
	Name     string      `xml:"name,attr"`
	Location string      `xml:"location"`
	MeetDay  string      `xml:"meetday"`
	MeetTime string      `xml:"meettime"`
	Members  []memberXML `xml:"member"`
}

type memberXML struct {
	Name  string `xml:"name"`
	Title string `xml:"title"`
}

// decodeSenateData parses a fragment payload. Named HTML entities such as
// &sect; are accepted.
func decodeSenateData(text string) (*senateData, error) {
	decoder := xml.NewDecoder(strings.NewReader(text))
	decoder.Entity = xml.HTMLEntity
	var data senateData
	if err := decoder.Decode(&data); err != nil {
		return nil, processor.Reject("malformed payload: %v", err)
	}
	return &data, nil
}

func sessionOf(sessionYear, year string) string {
	if s := strings.TrimSpace(sessionYear); s != "" {
		return s
	}
	return strings.TrimSpace(year)
}
