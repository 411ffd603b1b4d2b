package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Printer writes command results in the selected output format
type Printer struct {
	out        io.Writer
	errOut     io.Writer
	outputType OutputType
	noHeaders  bool
}

// New creates a new printer with the specified output type
func New(outputType OutputType, noHeaders bool) *Printer {
	return &Printer{
		out:        os.Stdout,
		errOut:     os.Stderr,
		outputType: outputType,
		noHeaders:  noHeaders,
	}
}

// SetOutput sets the output writers
func (p *Printer) SetOutput(out, errOut io.Writer) {
	p.out = out
	p.errOut = errOut
}

// Out returns the writer for regular output
func (p *Printer) Out() io.Writer {
	return p.out
}

// OutputType returns the selected output format
func (p *Printer) OutputType() OutputType {
	return p.outputType
}

// Print renders data as JSON or YAML, or hands a table printer to
// renderTable for the table formats.
func (p *Printer) Print(data any, renderTable func(t *TablePrinter)) error {
	switch p.outputType {
	case OutputTypeJSON:
		return p.PrintJSON(data)
	case OutputTypeYAML:
		return p.PrintYAML(data)
	}

	t := newTablePrinter(p.out, p.outputType, p.noHeaders)
	renderTable(t)
	return t.Render()
}

// PrintJSON prints data in JSON format
func (p *Printer) PrintJSON(data any) error {
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// PrintYAML prints data in YAML format
func (p *Printer) PrintYAML(data any) error {
	encoder := yaml.NewEncoder(p.out)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// PrintSuccess prints a success message with kubectl-style formatting
func (p *Printer) PrintSuccess(message string) {
	_, _ = fmt.Fprintf(p.out, "✓ %s\n", message)
}

// PrintError prints an error message
func (p *Printer) PrintError(message string) {
	_, _ = fmt.Fprintf(p.errOut, "Error: %s\n", message)
}

// PrintInfo prints an info message
func (p *Printer) PrintInfo(message string) {
	_, _ = fmt.Fprintf(p.out, "%s\n", message)
}

// FormatTimestamp formats a timestamp in kubectl style
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// FormatOptionalTimestamp formats t, or returns "<none>" when it is absent
func FormatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return "<none>"
	}
	return FormatTimestamp(*t)
}

// FormatAge formats the time since t as a kubectl-style age string (e.g., "5d", "3h", "45m")
func FormatAge(t time.Time) string {
	return formatDuration(time.Since(t))
}

func formatDuration(duration time.Duration) string {
	days := int(duration.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}

	hours := int(duration.Hours())
	if hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}

	minutes := int(duration.Minutes())
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}

	seconds := max(int(duration.Seconds()), 0)
	return fmt.Sprintf("%ds", seconds)
}
