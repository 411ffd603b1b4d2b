package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	v0 "github.com/logreporter-dev/logreporter/internal/reporter/api/handlers/v0"
	"github.com/logreporter-dev/logreporter/internal/version"
	"github.com/logreporter-dev/logreporter/pkg/printer"
)

type versionOutput struct {
	Client      v0.VersionBody  `json:"client" yaml:"client"`
	Server      *v0.VersionBody `json:"server,omitempty" yaml:"server,omitempty"`
	ServerError string          `json:"serverError,omitempty" yaml:"serverError,omitempty"`
}

// NewVersionCmd returns the version command.
func NewVersionCmd() *cobra.Command {
	var output outputOptions
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show client and server versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := output.printer(cmd)
			if err != nil {
				return err
			}

			out := versionOutput{
				Client: v0.VersionBody{
					Version:   version.Version,
					GitCommit: version.GitCommit,
					BuildTime: version.BuildDate,
				},
			}
			if apiClient != nil {
				server, err := apiClient.GetVersion(cmd.Context())
				if err != nil {
					out.ServerError = err.Error()
				} else {
					out.Server = server
				}
			}

			return p.Print(out, func(t *printer.TablePrinter) {
				t.SetHeaders("Component", "Version", "Commit", "Built")
				t.AddRow("client", out.Client.Version, out.Client.GitCommit, out.Client.BuildTime)
				if out.Server != nil {
					t.AddRow("server", out.Server.Version, out.Server.GitCommit, out.Server.BuildTime)
				} else if out.ServerError != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: server unavailable: %s\n", out.ServerError)
				}
			})
		},
	}
	output.addFlags(cmd)
	return cmd
}
