package calibration

import (
	"strings"

	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// Environment selects the reference pressure used to label output units.
// It does not change any arithmetic.
type Environment int

const (
	Water Environment = iota + 1
	Air
)

// ParseEnvironment accepts "water", "wat" or "air"
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "water", "wat":
		return Water, nil
	case "air":
		return Air, nil
	default:
		return 0, pamerr.Config("environment", "environment %q is invalid; valid values: air, water", s)
	}
}

func (e Environment) String() string {
	switch e {
	case Air:
		return "air"
	case Water:
		return "water"
	default:
		return "unknown"
	}
}

// Reference returns the reference pressure label
func (e Environment) Reference() string {
	if e == Air {
		return "20 µPa"
	}
	return "1 µPa"
}

// Units returns the unit label for PSD or broadband output
func Units(env Environment, calibrated, psd bool) string {
	switch {
	case calibrated && psd:
		return "dB re " + env.Reference() + "²/Hz"
	case calibrated:
		return "dB re " + env.Reference()
	case psd:
		return "FS²/Hz"
	default:
		return "dB re FS"
	}
}
