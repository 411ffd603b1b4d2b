package cli

import (
	"github.com/spf13/cobra"
)

// NewGetCmd returns the get command.
func NewGetCmd() *cobra.Command {
	var output outputOptions
	cmd := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show a job's status and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireClient(); err != nil {
				return err
			}
			p, err := output.printer(cmd)
			if err != nil {
				return err
			}
			job, err := apiClient.GetJob(cmd.Context(), args[0])
			if err != nil {
				return jobNotFound(err, args[0])
			}
			return printJob(p, job)
		},
	}
	output.addFlags(cmd)
	return cmd
}
