package ingest

import (
	"regexp"
	"time"
)

var (
	// SOBI.D130110.T143000.TXT
	sobiName = regexp.MustCompile(`^SOBI\.D(\d{6})\.T(\d{6})\.TXT$`)
	// 2017-01-31-04.51.42.526466_SENCOMM_BSCXB_SENATE.XML
	xmlName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}-\d{2}\.\d{2}\.\d{2}\.\d{6})_`)
)

// PublishedAt parses the publication time encoded in a feed file name.
// Times are read as UTC.
func PublishedAt(name string) (time.Time, bool) {
	if m := sobiName.FindStringSubmatch(name); m != nil {
		t, err := time.Parse("060102150405", m[1]+m[2])
		if err == nil {
			return t, true
		}
	}
	if m := xmlName.FindStringSubmatch(name); m != nil {
		t, err := time.Parse("2006-01-02-15.04.05.000000", m[1])
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
