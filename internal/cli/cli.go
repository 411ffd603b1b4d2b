package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logreporter-dev/logreporter/internal/client"
	v0 "github.com/logreporter-dev/logreporter/internal/reporter/api/handlers/v0"
	"github.com/logreporter-dev/logreporter/pkg/printer"
)

var apiClient *client.Client

// SetAPIClient sets the client used by every command.
func SetAPIClient(c *client.Client) {
	apiClient = c
}

func requireClient() error {
	if apiClient == nil {
		return errors.New("API client not initialized")
	}
	return nil
}

type outputOptions struct {
	format    string
	noHeaders bool
}

func (o *outputOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "output", "o", string(printer.OutputTypeTable), "Output format (table, wide, json, yaml)")
	cmd.Flags().BoolVar(&o.noHeaders, "no-headers", false, "Don't print table headers")
}

func (o *outputOptions) printer(cmd *cobra.Command) (*printer.Printer, error) {
	outputType, err := printer.ParseOutputType(o.format)
	if err != nil {
		return nil, err
	}
	p := printer.New(outputType, o.noHeaders)
	p.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	return p, nil
}

func jobNotFound(err error, id string) error {
	if client.IsNotFound(err) {
		return fmt.Errorf("job not found: %s", id)
	}
	return err
}

func formatProgress(parsed, total int) string {
	return fmt.Sprintf("%d/%d", parsed, total)
}

// printJob renders a job and, for table output, its per-service results.
func printJob(p *printer.Printer, job *v0.JobResponse) error {
	return p.Print(job, func(t *printer.TablePrinter) {
		w := p.Out()
		_, _ = fmt.Fprintf(w, "ID:        %s\n", job.ID)
		_, _ = fmt.Fprintf(w, "Status:    %s\n", job.Status)
		_, _ = fmt.Fprintf(w, "Directory: %s\n", job.LogDirectory)
		_, _ = fmt.Fprintf(w, "Filter:    %s\n", job.ServiceNameRegex)
		_, _ = fmt.Fprintf(w, "Progress:  %s\n", formatProgress(job.Progress.ParsedFiles, job.Progress.TotalFiles))
		if job.Fault != "" {
			_, _ = fmt.Fprintf(w, "Fault:     %s\n", job.Fault)
		}
		if t.Wide() {
			_, _ = fmt.Fprintf(w, "Created:   %s\n", job.CreatedAt)
			completed := job.CompletedAt
			if completed == "" {
				completed = "<none>"
			}
			_, _ = fmt.Fprintf(w, "Completed: %s\n", completed)
		}
		if len(job.Result) == 0 {
			return
		}

		_, _ = fmt.Fprintln(w)
		t.SetHeaders("Service", "Earliest", "Latest", "Rotations", "Categories")
		for _, r := range job.Result {
			t.AddRow(
				r.ServiceName,
				printer.FormatOptionalTimestamp(r.EarliestEntry),
				printer.FormatOptionalTimestamp(r.LatestEntry),
				r.RotationCount,
				printer.FormatCounts(r.CategoryCounts),
			)
		}
	})
}
