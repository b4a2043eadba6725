package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Custom help styles
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00")).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAAA")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#888888")).
				Italic(true)
)

// StyledHelpPrinter creates a custom help printer with Lipgloss styling
func StyledHelpPrinter(options kong.HelpOptions) func(options kong.HelpOptions, ctx *kong.Context) error {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		// Title and description
		sb.WriteString(helpTitleStyle.Render("PAMGuide 🌊"))
		sb.WriteString("\n")
		sb.WriteString(helpDescStyle.Render("Calibrated PSD and broadband sound levels from passive acoustic recordings"))
		sb.WriteString("\n")

		// Usage
		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(fmt.Sprintf("%s [flags] [<wav-or-dir> ...]", ctx.Model.Name))
		sb.WriteString("\n")

		// Arguments section
		args := getArguments(ctx)
		if len(args) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Arguments:"))
			sb.WriteString("\n")
			for _, arg := range args {
				sb.WriteString("  ")
				sb.WriteString(helpArgStyle.Render(arg.name))
				if arg.help != "" {
					sb.WriteString("  ")
					sb.WriteString(arg.help)
				}
				sb.WriteString("\n")
			}
		}

		// Flags, one section per kong group
		for _, group := range flagGroups(ctx) {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render(group.title + ":"))
			sb.WriteString("\n")
			width := 0
			for _, f := range group.flags {
				width = max(width, len(f.flags))
			}
			for _, f := range group.flags {
				sb.WriteString("  ")
				sb.WriteString(helpFlagStyle.Render(fmt.Sprintf("%-*s", width, f.flags)))
				if f.help != "" {
					sb.WriteString("  ")
					sb.WriteString(f.help)
				}
				if f.defaultVal != "" {
					sb.WriteString(" ")
					sb.WriteString(helpDefaultStyle.Render("(default: " + f.defaultVal + ")"))
				}
				sb.WriteString("\n")
			}
		}

		// Examples section
		sb.WriteString("\n")
		sb.WriteString(helpSectionStyle.Render("Examples:"))
		sb.WriteString("\n")
		for _, ex := range examples(ctx.Model.Name) {
			sb.WriteString("  ")
			sb.WriteString(helpArgStyle.Render(ex.command))
			sb.WriteString("\n      ")
			sb.WriteString(helpDefaultStyle.Render(ex.help))
			sb.WriteString("\n")
		}

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

type example struct {
	command string
	help    string
}

func examples(name string) []example {
	return []example{
		{name + " -c survey.toml", "analyse input_path from a TOML config"},
		{name + " -c survey.yaml /data/site4", "analyse every .wav in a directory with a YAML config"},
		{name + " --no-tui --workers 8 a.wav b.wav", "plain log output, eight recordings at a time"},
	}
}

type argument struct {
	name string
	help string
}

type flag struct {
	flags      string
	help       string
	defaultVal string
}

type flagGroup struct {
	title string
	flags []flag
}

func getArguments(ctx *kong.Context) []argument {
	var args []argument
	for _, arg := range ctx.Model.Node.Positional {
		args = append(args, argument{name: arg.Summary(), help: arg.Help})
	}
	return args
}

// flagGroups collects visible flags by their kong group, in declaration
// order. Ungrouped flags, help included, come first under "Flags".
func flagGroups(ctx *kong.Context) []flagGroup {
	groups := []flagGroup{{
		title: "Flags",
		flags: []flag{{flags: "-h, --help", help: "Show context-sensitive help."}},
	}}
	index := map[string]int{"": 0}

	for _, f := range ctx.Model.Node.Flags {
		if f.Name == "help" || f.Hidden {
			continue
		}

		key, title := "", "Flags"
		if f.Group != nil {
			key, title = f.Group.Key, f.Group.Title
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, flagGroup{title: title})
		}
		groups[i].flags = append(groups[i].flags, describeFlag(f))
	}
	return groups
}

func describeFlag(f *kong.Flag) flag {
	name := "--" + f.Name
	if f.Short != 0 {
		name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
	}
	if !f.IsBool() {
		placeholder := f.PlaceHolder
		if placeholder == "" {
			placeholder = f.Name
		}
		name += "=" + strings.ToUpper(placeholder)
	}

	var def string
	if f.HasDefault && f.Default != "" {
		def = f.Default
	}
	return flag{flags: name, help: f.Help, defaultVal: def}
}
