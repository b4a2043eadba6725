package analysis

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/thlib/go-timezone-local/tzlocal"

	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// referenceTime is Go's layout reference instant, used to measure how wide
// a formatted timestamp is
var referenceTime = time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)

// ParseTimestamp extracts the recording start time from a filename.
//
// layout is a Go time layout such as "060102150405". The part of the stem
// after the first '.' is tried first (e.g. "site4.230514093000.wav"); if that
// fails, every substring of the stem with the layout's formatted width is
// tried from left to right. Failures are Timestamp-kind errors.
func ParseTimestamp(name, layout string, loc *time.Location) (time.Time, error) {
	if layout == "" {
		return time.Time{}, pamerr.Timestamp("timestamp", errors.New("no timestamp layout configured"))
	}
	if loc == nil {
		loc = time.UTC
	}

	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	if _, after, ok := strings.Cut(stem, "."); ok {
		if t, err := time.ParseInLocation(layout, after, loc); err == nil {
			return t, nil
		}
	}

	width := len(referenceTime.Format(layout))
	for i := 0; i+width <= len(stem); i++ {
		if t, err := time.ParseInLocation(layout, stem[i:i+width], loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, pamerr.Timestamp("timestamp",
		fmt.Errorf("no %q timestamp found in %q", layout, filepath.Base(name)))
}

// LoadLocation resolves a timestamp_zone setting. "" and "UTC" are UTC,
// "local" is the host's IANA zone, anything else is an IANA zone name.
func LoadLocation(zone string) (*time.Location, error) {
	switch strings.ToLower(strings.TrimSpace(zone)) {
	case "", "utc":
		return time.UTC, nil
	case "local":
		name, err := tzlocal.RuntimeTZ()
		if err != nil || name == "" {
			return time.Local, nil
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, nil
		}
		return time.Local, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(zone))
	if err != nil {
		return nil, pamerr.Config("timestamp_zone", "unknown time zone %q: %v", zone, err)
	}
	return loc, nil
}
