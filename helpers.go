package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"regexp"
	"sort"
	"strings"

	"github.com/SwissLife-OSS/escmd/internal/reconcile"
	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	colorGreen  = lipgloss.Color("#10b981")
	colorYellow = lipgloss.Color("#f59e0b")
	colorRed    = lipgloss.Color("#ef4444")
	colorGray   = lipgloss.Color("#6b7280")

	styleOK    = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	styleWarn  = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	styleError = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleMuted = lipgloss.NewStyle().Foreground(colorGray)
)

// healthStyle returns the style for an Elasticsearch health color.
func healthStyle(health string) lipgloss.Style {
	switch health {
	case "green":
		return styleOK
	case "yellow":
		return styleWarn
	case "red":
		return styleError
	default:
		return styleMuted
	}
}

// mapOrderedByKey returns an iterator allowing to iterate over a given
// map ordered by key.
func mapOrderedByKey[K cmp.Ordered, E any](m map[K]E) iter.Seq2[K, E] {
	return func(yield func(K, E) bool) {
		keys := make([]K, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}

		sort.Slice(keys, func(i, j int) bool {
			return keys[i] < keys[j]
		})

		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

// stdout is where command output goes. Subcommands default their own Writer
// to os.Stdout, so the root writer is used.
func stdout(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

func stdin(cmd *cli.Command) io.Reader {
	return cmd.Root().Reader
}

// outputFormat returns the validated --format value.
func outputFormat(cmd *cli.Command) (string, error) {
	format := cmd.String("format")
	switch format {
	case "", formatTable:
		return formatTable, nil
	case formatJSON:
		return formatJSON, nil
	default:
		return "", fmt.Errorf("format %q is invalid, valid values are: %v", format, []string{formatTable, formatJSON})
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, header []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header)
	err := table.Bulk(data)
	if err != nil {
		return err
	}

	return table.Render()
}

// compileFilter compiles an optional case-insensitive index filter. An empty
// expression matches everything.
func compileFilter(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return reconcile.CompilePattern(expr)
}

func matches(re *regexp.Regexp, s string) bool {
	return re == nil || re.MatchString(s)
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
