package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logreporter-dev/logreporter/pkg/printer"
)

// NewListCmd returns the list command.
func NewListCmd() *cobra.Command {
	var output outputOptions
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List aggregation jobs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireClient(); err != nil {
				return err
			}
			p, err := output.printer(cmd)
			if err != nil {
				return err
			}

			list, err := apiClient.ListJobs(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}

			tableOutput := p.OutputType() == printer.OutputTypeTable || p.OutputType() == printer.OutputTypeWide
			if len(list.Jobs) == 0 && tableOutput {
				p.PrintInfo("No jobs found")
				return nil
			}

			err = p.Print(list, func(t *printer.TablePrinter) {
				if t.Wide() {
					t.SetHeaders("ID", "Status", "Progress", "Filter", "Directory", "Completed", "Age")
				} else {
					t.SetHeaders("ID", "Status", "Progress", "Filter", "Age")
				}
				for _, job := range list.Jobs {
					progress := formatProgress(job.Progress.ParsedFiles, job.Progress.TotalFiles)
					age := printer.FormatAge(job.CreatedAt)
					if t.Wide() {
						t.AddRow(job.ID, job.Status, progress, job.ServiceNameFilter,
							job.Directory, printer.FormatOptionalTimestamp(job.CompletedAt), age)
						continue
					}
					t.AddRow(job.ID, job.Status, progress, printer.TruncateString(job.ServiceNameFilter, 30), age)
				}
			})
			if err != nil || !tableOutput {
				return err
			}
			p.PrintInfo(fmt.Sprintf("\nTotal: %d (completed %d, faulted %d, in progress %d)",
				list.TotalCount, list.CompletedCount, list.FaultedCount, list.InProgressCount))
			return nil
		},
	}
	output.addFlags(cmd)
	return cmd
}
