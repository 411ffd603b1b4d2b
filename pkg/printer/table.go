package printer

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
)

// OutputType names one of the formats accepted by -o.
type OutputType string

const (
	OutputTypeTable OutputType = "table"
	OutputTypeWide  OutputType = "wide"
	OutputTypeJSON  OutputType = "json"
	OutputTypeYAML  OutputType = "yaml"
)

// ParseOutputType maps a -o value to an OutputType. An empty value means table.
func ParseOutputType(s string) (OutputType, error) {
	switch t := OutputType(strings.ToLower(s)); t {
	case OutputTypeTable, OutputTypeWide, OutputTypeJSON, OutputTypeYAML:
		return t, nil
	case "":
		return OutputTypeTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table, wide, json or yaml)", s)
	}
}

// TablePrinter collects a header and rows, then writes them as aligned
// columns on Render. Headers are upper-cased.
type TablePrinter struct {
	out       io.Writer
	wide      bool
	noHeaders bool
	header    []string
	rows      [][]string
}

func newTablePrinter(out io.Writer, outputType OutputType, noHeaders bool) *TablePrinter {
	return &TablePrinter{
		out:       out,
		wide:      outputType == OutputTypeWide,
		noHeaders: noHeaders,
	}
}

// Wide is true when the caller asked for -o wide and may add extra columns.
func (p *TablePrinter) Wide() bool {
	return p.wide
}

func (p *TablePrinter) SetHeaders(columns ...string) {
	p.header = columns
}

func (p *TablePrinter) AddRow(cells ...any) {
	row := make([]string, 0, len(cells))
	for _, c := range cells {
		row = append(row, fmt.Sprint(c))
	}
	p.rows = append(p.rows, row)
}

func (p *TablePrinter) Render() error {
	if len(p.header) == 0 && len(p.rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(p.out, 0, 0, 3, ' ', 0)
	if len(p.header) > 0 && !p.noHeaders {
		_, _ = fmt.Fprintln(tw, strings.ToUpper(strings.Join(p.header, "\t")))
	}
	for _, row := range p.rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// TruncateString shortens s to at most maxLen bytes, marking the cut with
// "..." when there is room for it.
func TruncateString(s string, maxLen int) string {
	switch {
	case len(s) <= maxLen:
		return s
	case maxLen <= 3:
		return s[:maxLen]
	default:
		return s[:maxLen-3] + "..."
	}
}

// FormatCounts renders a category histogram as "A=1, B=2" in key order.
func FormatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "<none>"
	}
	var b strings.Builder
	for i, k := range slices.Sorted(maps.Keys(counts)) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%d", k, counts[k])
	}
	return b.String()
}
