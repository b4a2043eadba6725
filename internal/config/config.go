// Package config provides the configuration schema and loader for pamguide
// batch runs.
package config

// Format is a configuration file syntax
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Config is the root configuration structure. Field names follow the keys
// of the classic PAMGuide config.toml.
type Config struct {
	// InputPath is a WAV file or a directory of WAV files. Positional CLI
	// arguments take precedence.
	InputPath string `toml:"input_path" yaml:"input_path"`

	// OutputDir receives CSV and report files. Defaults to the input directory.
	OutputDir string `toml:"output_dir" yaml:"output_dir"`

	WriteCSV                 bool `toml:"write_csv" yaml:"write_csv"`
	CreateBatchSummaryFile   bool `toml:"create_batch_summary_file" yaml:"create_batch_summary_file"`
	WriteIndividualBatchCSVs bool `toml:"write_individual_batch_csvs" yaml:"write_individual_batch_csvs"`
	WriteSummaryReport       bool `toml:"write_summary_report" yaml:"write_summary_report"`

	// AnalysisType is "psd" or "broadband".
	AnalysisType string `toml:"analysis_type" yaml:"analysis_type"`

	// Environment is "air" or "water"; it only changes unit labels.
	Environment string `toml:"environment" yaml:"environment"`

	Calibrated        bool     `toml:"calibrated" yaml:"calibrated"`
	CalibrationType   string   `toml:"calibration_type" yaml:"calibration_type"`
	Sensitivity       *float64 `toml:"mic_hydro_sensitivity" yaml:"mic_hydro_sensitivity"`
	PreampGain        *float64 `toml:"preamp_gain" yaml:"preamp_gain"`
	ADCPeak           *float64 `toml:"adc_vpeak" yaml:"adc_vpeak"`
	SystemSensitivity *float64 `toml:"system_sensitivity" yaml:"system_sensitivity"`

	WindowType        string  `toml:"window_type" yaml:"window_type"`
	WindowLength      float64 `toml:"window_length" yaml:"window_length"`
	WindowUnit        string  `toml:"window_unit" yaml:"window_unit"`
	OverlapPercentage float64 `toml:"overlap_percentage" yaml:"overlap_percentage"`
	WelchFactor       int     `toml:"welch_factor" yaml:"welch_factor"`

	// LowCutoff and HighCutoff bound the analysis band in Hz. A zero
	// HighCutoff means the Nyquist frequency of each recording.
	LowCutoff  float64 `toml:"low_cutoff" yaml:"low_cutoff"`
	HighCutoff float64 `toml:"high_cutoff" yaml:"high_cutoff"`

	// TimestampFormat is a Go time layout, e.g. "060102150405". Empty
	// disables filename timestamps.
	TimestampFormat string `toml:"timestamp_format" yaml:"timestamp_format"`

	// TimestampZone is "UTC", "local" or an IANA zone name.
	TimestampZone string `toml:"timestamp_zone" yaml:"timestamp_zone"`

	Channel      int `toml:"channel" yaml:"channel"`
	Workers      int `toml:"workers" yaml:"workers"`
	FrameWorkers int `toml:"frame_workers" yaml:"frame_workers"`

	// MainsFrequency selects the hum fundamental shown in the summary
	// report: 0 disables, -1 detects 50/60 Hz from the local timezone.
	MainsFrequency int `toml:"mains_frequency" yaml:"mains_frequency"`
}

// Default returns the configuration used for keys a file leaves out
func Default() *Config {
	return &Config{
		WriteCSV:               true,
		CreateBatchSummaryFile: true,
		AnalysisType:           "psd",
		Environment:            "water",
		WindowType:             "hann",
		WindowLength:           1,
		WindowUnit:             "seconds",
		OverlapPercentage:      50,
		WelchFactor:            1,
		TimestampZone:          "UTC",
		FrameWorkers:           1,
	}
}
