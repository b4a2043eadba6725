package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/pamguide/internal/analysis"
	"github.com/linuxmatters/pamguide/internal/calibration"
	"github.com/linuxmatters/pamguide/internal/cli"
	"github.com/linuxmatters/pamguide/internal/config"
	"github.com/linuxmatters/pamguide/internal/mains"
	"github.com/linuxmatters/pamguide/internal/observe"
	"github.com/linuxmatters/pamguide/internal/report"
	"github.com/linuxmatters/pamguide/internal/ui"
)

var (
	version = "0.0.1"
)

const (
	defaultConfig = "config.toml"
	debugLogName  = "pamguide-debug.log"
)

// CLI defines the command-line interface
type CLI struct {
	Version      bool     `short:"v" help:"Show version information"`
	Config       string   `short:"c" type:"path" help:"Path to TOML or YAML config file (default: ./config.toml when present)"`
	Workers      int      `group:"run" help:"Recordings analysed concurrently (overrides config; 0 keeps it)"`
	FrameWorkers int      `name:"frame-workers" group:"run" help:"Workers per recording for frame spectra (overrides config; 0 keeps it)"`
	NoTUI        bool     `name:"no-tui" group:"output" help:"Print plain progress lines instead of the interactive view"`
	LogLevel     string   `name:"log-level" group:"output" default:"info" enum:"debug,info,warn,error" placeholder:"level" help:"Log level (debug, info, warn, error)"`
	MetricsAddr  string   `name:"metrics-addr" group:"output" placeholder:"addr" help:"Serve Prometheus metrics on this address while analysing, e.g. :9464"`
	Inputs       []string `arg:"" name:"inputs" help:"WAV files or directories of WAV files (overrides input_path)" type:"path" optional:""`
}

func main() {
	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs,
		kong.Name("pamguide"),
		kong.Description("Calibrated PSD and broadband sound levels from passive acoustic recordings"),
		kong.UsageOnError(),
		kong.ExplicitGroups([]kong.Group{
			{Key: "run", Title: "Analysis"},
			{Key: "output", Title: "Output"},
		}),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	cfg, err := loadConfig(cliArgs.Config)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	if cliArgs.Workers > 0 {
		cfg.Workers = cliArgs.Workers
	}
	if cliArgs.FrameWorkers > 0 {
		cfg.FrameWorkers = cliArgs.FrameWorkers
	}

	settings, err := cfg.Settings()
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	inputs, err := discoverInputs(cliArgs.Inputs, cfg.InputPath)
	if err != nil {
		cli.PrintError(err.Error())
		kctx.PrintUsage(false)
		os.Exit(1)
	}

	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(inputs[0])
	}

	closeLog, err := setupLogging(cliArgs.LogLevel, !cliArgs.NoTUI)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, shutdown, err := setupMetrics(ctx, cliArgs.MetricsAddr)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logrus.WithError(err).Warn("metrics shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"inputs":   len(inputs),
		"output":   outDir,
		"settings": settings.String(),
	}).Info("starting analysis")

	j := &job{
		cfg:      cfg,
		settings: settings,
		inputs:   inputs,
		outDir:   outDir,
		metrics:  metrics,
	}

	if cliArgs.NoTUI {
		err = j.runPlain(ctx, os.Stdout)
	} else {
		err = j.runTUI(ctx)
	}
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// loadConfig reads path, or ./config.toml when path is empty and the file
// exists, falling back to the built-in defaults
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfig); err != nil {
			return config.Default(), nil
		}
		path = defaultConfig
	}
	return config.Load(path)
}

// setupLogging configures logrus. While the TUI owns the terminal, log
// output goes to a debug file instead.
func setupLogging(level string, toFile bool) (func(), error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if !toFile {
		logrus.SetOutput(os.Stderr)
		return func() {}, nil
	}

	debugLog, err := os.Create(debugLogName)
	if err != nil {
		return nil, fmt.Errorf("create debug log: %w", err)
	}
	logrus.SetOutput(debugLog)
	return func() { debugLog.Close() }, nil
}

// setupMetrics installs the Prometheus-backed meter provider when addr is
// set. Without an address the returned Metrics is nil and records nothing.
func setupMetrics(ctx context.Context, addr string) (*observe.Metrics, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if addr == "" {
		return nil, noop, nil
	}

	provider, shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "pamguide",
		ServiceVersion: version,
	})
	if err != nil {
		return nil, noop, err
	}
	metrics, err := observe.NewMetrics(provider)
	if err != nil {
		return nil, shutdown, err
	}

	go func() {
		if err := observe.Serve(ctx, addr); err != nil {
			logrus.WithError(err).WithField("addr", addr).Error("metrics server stopped")
		}
	}()
	logrus.WithField("addr", addr).Info("serving metrics on /metrics")
	return metrics, shutdown, nil
}

// job holds everything one batch run needs
type job struct {
	cfg      *config.Config
	settings analysis.Settings
	inputs   []string
	outDir   string
	metrics  *observe.Metrics
}

// analyse runs the batch and writes every configured output
func (j *job) analyse(ctx context.Context, progress func(analysis.Event)) (*analysis.BatchResult, []string, error) {
	start := time.Now()
	agg := analysis.NewAggregator(j.settings,
		analysis.WithMetrics(j.metrics),
		analysis.WithProgress(progress),
		analysis.WithLogger(logrus.StandardLogger()),
	)

	batch, runErr := agg.Run(ctx, j.inputs)
	if batch == nil {
		return nil, nil, runErr
	}

	outputs, outErr := writeOutputs(j.cfg, j.settings, batch, j.outDir, report.SummaryData{
		Settings:  j.settings,
		Batch:     batch,
		StartTime: start,
		EndTime:   time.Now(),
		Mains:     j.cfg.Mains(mains.Frequency),
	})
	return batch, outputs, errors.Join(runErr, outErr)
}

// runTUI drives the bubbletea view from aggregator progress events
func (j *job) runTUI(ctx context.Context) error {
	units := calibration.Units(j.settings.Environment(), j.settings.Calibrated(), false)
	model := ui.NewModel(j.inputs, j.settings.String(), units)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		_, outputs, err := j.analyse(ctx, func(e analysis.Event) {
			p.Send(j.eventMsg(e))
		})
		logrus.WithField("outputs", len(outputs)).Debug("sending AllCompleteMsg")
		p.Send(ui.AllCompleteMsg{Outputs: outputs, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("UI error: %w", err)
	}

	// The alt screen is gone once Run returns; leave the summary behind
	if m, ok := final.(ui.Model); ok && m.Done {
		fmt.Print(m.View())
	}
	return nil
}

// eventMsg converts an aggregator event into the matching UI message
func (j *job) eventMsg(e analysis.Event) tea.Msg {
	if e.Kind == analysis.FileStarted {
		return ui.FileStartMsg{FileIndex: e.Index, FileName: filepath.Base(e.Path)}
	}
	msg := ui.FileCompleteMsg{FileIndex: e.Index, Error: e.Err}
	if r := e.Result; r != nil {
		msg.Frames = r.Frames
		msg.Blocks = len(r.Blocks)
		msg.Level = j.settings.Calibrator().Level(r.MeanBandPower())
		msg.Warnings = r.Warnings
	}
	return msg
}

// runPlain prints one line per finished recording
func (j *job) runPlain(ctx context.Context, w io.Writer) error {
	cli.PrintKeyValue(w, "Analysis", j.settings.String())
	cli.PrintKeyValue(w, "Recordings", fmt.Sprintf("%d", len(j.inputs)))

	var mu sync.Mutex
	units := calibration.Units(j.settings.Environment(), j.settings.Calibrated(), false)
	batch, outputs, err := j.analyse(ctx, func(e analysis.Event) {
		if e.Kind != analysis.FileDone {
			return
		}
		mu.Lock()
		defer mu.Unlock()

		name := filepath.Base(e.Path)
		label := fmt.Sprintf("[%d/%d] %s", e.Index+1, e.Total, name)
		if e.Err != nil {
			cli.PrintWarning(w, fmt.Sprintf("%s: %v", label, e.Err))
			return
		}
		level := j.settings.Calibrator().Level(e.Result.MeanBandPower())
		cli.PrintKeyValue(w, label, fmt.Sprintf("%d blocks, Leq %.1f %s", len(e.Result.Blocks), level, units))
		for _, warning := range e.Result.Warnings {
			cli.PrintWarning(w, fmt.Sprintf("%s: %s", name, warning))
		}
	})

	for _, out := range outputs {
		cli.PrintKeyValue(w, "Wrote", out)
	}
	if batch != nil {
		cli.PrintDone(w, fmt.Sprintf("%d analysed, %d skipped", len(batch.Files), len(batch.Failures)))
	}
	return err
}
