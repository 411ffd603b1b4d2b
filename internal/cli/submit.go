package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	v0 "github.com/logreporter-dev/logreporter/internal/reporter/api/handlers/v0"
	"github.com/logreporter-dev/logreporter/pkg/printer"
)

type submitOptions struct {
	output outputOptions
	filter string
	wait   bool
}

// NewSubmitCmd returns the submit command.
func NewSubmitCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit <log-directory>",
		Short: "Submit a log aggregation job",
		Long: `Submit a job that aggregates every <service>.*.log file in the directory whose
service name matches --filter. With --wait the command follows the job until it
completes and prints the per-service report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, args[0], opts)
		},
	}
	opts.output.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.filter, "filter", "f", ".*", "Regular expression matched against service names")
	cmd.Flags().BoolVarP(&opts.wait, "wait", "w", false, "Wait for the job to finish and print its result")
	return cmd
}

func runSubmit(cmd *cobra.Command, dir string, opts *submitOptions) error {
	if err := requireClient(); err != nil {
		return err
	}
	p, err := opts.output.printer(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	submitted, err := apiClient.SubmitJob(ctx, dir, opts.filter)
	if err != nil {
		return err
	}

	if !opts.wait {
		return p.Print(submitted, func(t *printer.TablePrinter) {
			t.SetHeaders("ID", "Status")
			t.AddRow(submitted.ID, submitted.Status)
		})
	}

	var progress io.Writer = io.Discard
	if outputType := p.OutputType(); outputType == printer.OutputTypeTable || outputType == printer.OutputTypeWide {
		progress = cmd.ErrOrStderr()
	}
	job, err := waitForJob(ctx, submitted.ID, progress)
	if err != nil {
		return err
	}
	if err := printJob(p, job); err != nil {
		return err
	}
	if job.Status == "faulted" {
		return fmt.Errorf("job %s faulted: %s", job.ID, job.Fault)
	}
	return nil
}

var errTerminal = errors.New("job reached a terminal state")

// waitForJob follows the job's event stream, drawing a spinner on progress,
// and returns the job once it is completed or faulted.
func waitForJob(ctx context.Context, id string, progress io.Writer) (*v0.JobResponse, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Aggregating logs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionClearOnFinish(),
	)

	var final *v0.JobResponse
	err := apiClient.StreamJobEvents(ctx, id, func(event v0.SSEEvent) error {
		switch event.Type {
		case "error":
			return fmt.Errorf("job %s: %s", id, event.Error)
		case "completed", "faulted":
			final = event.Job
			return errTerminal
		}
		if event.Job != nil && event.Job.Progress.TotalFiles > 0 {
			bar.ChangeMax(event.Job.Progress.TotalFiles)
			_ = bar.Set(event.Job.Progress.ParsedFiles)
		}
		return nil
	})
	_ = bar.Finish()

	if err != nil && !errors.Is(err, errTerminal) {
		return nil, jobNotFound(err, id)
	}
	if final == nil {
		// The stream ended without a terminal event; ask once more.
		job, err := apiClient.GetJob(ctx, id)
		if err != nil {
			return nil, jobNotFound(err, id)
		}
		final = job
	}
	return final, nil
}
