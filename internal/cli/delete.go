package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logreporter-dev/logreporter/pkg/printer"
)

// NewDeleteCmd returns the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <job-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a job",
		Long:    `Delete a job. A running aggregation finishes in the background and its result is discarded.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireClient(); err != nil {
				return err
			}
			if err := apiClient.DeleteJob(cmd.Context(), args[0]); err != nil {
				return jobNotFound(err, args[0])
			}
			p := printer.New(printer.OutputTypeTable, false)
			p.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
			p.PrintSuccess(fmt.Sprintf("Job %s deleted", args[0]))
			return nil
		},
	}
}
