// Package calibration maps full-scale referenced power to calibrated sound levels.
package calibration

import (
	"fmt"
	"math"
	"strings"

	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// Type names a calibration variant as it appears in configuration
type Type string

const (
	TypeTS Type = "TS" // transducer sensitivity, preamp gain and ADC peak voltage
	TypeEE Type = "EE" // end-to-end system sensitivity
	TypeRC Type = "RC" // recorder calibration plus transducer sensitivity
)

// Model is one calibration variant. The set of implementations is closed.
type Model interface {
	// Type returns the variant tag
	Type() Type
	// Offset returns the dB added to 10·log10(P)
	Offset() float64
	validate() error
}

// TS calibrates from transducer specifications
type TS struct {
	Sensitivity float64 // mic/hydrophone sensitivity, dB re 1 V/µPa (water) or 1 V/Pa (air)
	PreampGain  float64 // dB
	ADCPeak     float64 // ADC full-scale peak voltage, V
}

func (TS) Type() Type { return TypeTS }

// Offset is -(M + G) + 20·log10(Vadc)
func (m TS) Offset() float64 {
	return -(m.Sensitivity + m.PreampGain) + 20*math.Log10(m.ADCPeak)
}

func (m TS) validate() error {
	if !(m.ADCPeak > 0) || math.IsInf(m.ADCPeak, 0) {
		return pamerr.Config("calibration", "adc_vpeak must be a positive voltage, got %g", m.ADCPeak)
	}
	if err := finite("mic_hydro_sensitivity", m.Sensitivity); err != nil {
		return err
	}
	return finite("preamp_gain", m.PreampGain)
}

// EE calibrates from a measured end-to-end system sensitivity
type EE struct {
	SystemSensitivity float64 // dB
}

func (EE) Type() Type { return TypeEE }

// Offset is -S
func (m EE) Offset() float64 { return -m.SystemSensitivity }

func (m EE) validate() error {
	return finite("system_sensitivity", m.SystemSensitivity)
}

// RC calibrates from a recorder sensitivity combined with the transducer sensitivity
type RC struct {
	Sensitivity       float64 // mic/hydrophone sensitivity, dB
	SystemSensitivity float64 // recorder sensitivity, dB
}

func (RC) Type() Type { return TypeRC }

// Offset is -(M + S)
func (m RC) Offset() float64 { return -(m.Sensitivity + m.SystemSensitivity) }

func (m RC) validate() error {
	if err := finite("mic_hydro_sensitivity", m.Sensitivity); err != nil {
		return err
	}
	return finite("system_sensitivity", m.SystemSensitivity)
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return pamerr.Config("calibration", "%s must be finite, got %g", name, v)
	}
	return nil
}

// Fields carries the optional calibration inputs read from configuration.
// Only the fields required by the chosen Type are consulted.
type Fields struct {
	Sensitivity       *float64 // mic_hydro_sensitivity
	PreampGain        *float64 // preamp_gain
	ADCPeak           *float64 // adc_vpeak
	SystemSensitivity *float64 // system_sensitivity
}

// ParseType maps a config string to a Type, ignoring case
func ParseType(s string) (Type, error) {
	switch Type(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeTS:
		return TypeTS, nil
	case TypeEE:
		return TypeEE, nil
	case TypeRC:
		return TypeRC, nil
	default:
		return "", pamerr.Config("calibration", "calibration_type %q is invalid; valid values: TS, EE, RC", s)
	}
}

// FromFields builds the Model for typ, failing if any field it needs is absent
func FromFields(typ Type, f Fields) (Model, error) {
	var missing []string
	need := func(name string, v *float64) float64 {
		if v == nil {
			missing = append(missing, name)
			return 0
		}
		return *v
	}

	var m Model
	switch typ {
	case TypeTS:
		m = TS{
			Sensitivity: need("mic_hydro_sensitivity", f.Sensitivity),
			PreampGain:  need("preamp_gain", f.PreampGain),
			ADCPeak:     need("adc_vpeak", f.ADCPeak),
		}
	case TypeEE:
		m = EE{SystemSensitivity: need("system_sensitivity", f.SystemSensitivity)}
	case TypeRC:
		m = RC{
			Sensitivity:       need("mic_hydro_sensitivity", f.Sensitivity),
			SystemSensitivity: need("system_sensitivity", f.SystemSensitivity),
		}
	default:
		return nil, pamerr.Config("calibration", "calibration_type %q is invalid; valid values: TS, EE, RC", typ)
	}

	if len(missing) > 0 {
		return nil, pamerr.Config("calibration", "%s calibration requires %s", typ, strings.Join(missing, ", "))
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Calibrator applies a Model to linear power values.
// The zero value is a disabled calibrator that passes linear power through.
type Calibrator struct {
	model  Model
	offset float64
}

// New validates model once and returns a calibrator for it.
// A nil model yields a disabled calibrator.
func New(model Model) (*Calibrator, error) {
	if model == nil {
		return &Calibrator{}, nil
	}
	if err := model.validate(); err != nil {
		return nil, err
	}
	return &Calibrator{model: model, offset: model.Offset()}, nil
}

// Disabled returns a calibrator for uncalibrated output
func Disabled() *Calibrator {
	return &Calibrator{}
}

// Enabled reports whether values are converted to calibrated dB
func (c *Calibrator) Enabled() bool { return c.model != nil }

// Model returns the active variant, or nil when disabled
func (c *Calibrator) Model() Model { return c.model }

// Offset returns the dB offset of the active variant, or 0 when disabled
func (c *Calibrator) Offset() float64 { return c.offset }

// Value converts one linear PSD value. Disabled calibrators return p unchanged;
// enabled ones return 10·log10(p) + offset, with non-positive power mapped to -Inf.
func (c *Calibrator) Value(p float64) float64 {
	if !c.Enabled() {
		return p
	}
	return toDB(p) + c.offset
}

// Spectrum converts a linear PSD into a new slice of output values
func (c *Calibrator) Spectrum(power []float64) []float64 {
	out := make([]float64, len(power))
	for i, p := range power {
		out[i] = c.Value(p)
	}
	return out
}

// Level converts an integrated linear band power to dB.
// Broadband figures are always in dB; uncalibrated ones are relative to full scale.
func (c *Calibrator) Level(power float64) float64 {
	return toDB(power) + c.offset
}

func (c *Calibrator) String() string {
	if !c.Enabled() {
		return "uncalibrated"
	}
	return fmt.Sprintf("%s (offset %+.2f dB)", c.model.Type(), c.offset)
}

func toDB(p float64) float64 {
	if p <= 0 || math.IsNaN(p) {
		return math.Inf(-1)
	}
	return 10 * math.Log10(p)
}
