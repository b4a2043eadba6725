package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

type helpTestCLI struct {
	Verbose bool     `short:"v" help:"Verbose output"`
	Workers int      `group:"run" default:"2" help:"Worker count"`
	Secret  string   `hidden:"" help:"Not shown"`
	Inputs  []string `arg:"" optional:"" help:"Recordings"`
}

func traceHelp(t *testing.T, out *bytes.Buffer) *kong.Context {
	t.Helper()
	parser, err := kong.New(&helpTestCLI{},
		kong.Name("pamguide"),
		kong.ExplicitGroups([]kong.Group{{Key: "run", Title: "Analysis"}}),
		kong.Writers(out, out),
	)
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}
	ctx, err := kong.Trace(parser, nil)
	if err != nil {
		t.Fatalf("kong.Trace: %v", err)
	}
	return ctx
}

func TestFlagGroups(t *testing.T) {
	var out bytes.Buffer
	groups := flagGroups(traceHelp(t, &out))

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2: %+v", len(groups), groups)
	}
	if groups[0].title != "Flags" || groups[1].title != "Analysis" {
		t.Errorf("titles = %q, %q", groups[0].title, groups[1].title)
	}

	var general []string
	for _, f := range groups[0].flags {
		general = append(general, f.flags)
	}
	if strings.Join(general, "|") != "-h, --help|-v, --verbose" {
		t.Errorf("general flags = %v", general)
	}

	workers := groups[1].flags[0]
	if workers.flags != "--workers=WORKERS" || workers.defaultVal != "2" {
		t.Errorf("workers flag = %+v", workers)
	}
}

func TestStyledHelpPrinter(t *testing.T) {
	var out bytes.Buffer
	ctx := traceHelp(t, &out)

	printer := StyledHelpPrinter(kong.HelpOptions{Compact: true})
	if err := printer(kong.HelpOptions{Compact: true}, ctx); err != nil {
		t.Fatalf("printer: %v", err)
	}

	help := out.String()
	for _, want := range []string{"PAMGuide", "Usage:", "Arguments:", "Analysis:", "--workers", "Examples:"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
	if strings.Contains(help, "secret") {
		t.Errorf("hidden flag shown:\n%s", help)
	}
}
