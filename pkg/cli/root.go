package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logreporter-dev/logreporter/internal/cli"
	"github.com/logreporter-dev/logreporter/internal/client"
)

var (
	serverURL   string
	serverToken string
)

var rootCmd = &cobra.Command{
	Use:          "logctl",
	Short:        "Log reporter CLI",
	Long:         `logctl submits log aggregation jobs to a log reporter server and shows their results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		baseURL, token := resolveServerTarget()
		APIClient = client.NewClient(baseURL, token)
		cli.SetAPIClient(APIClient)
		return nil
	},
}

// APIClient is the shared API client used by CLI commands
var APIClient *client.Client

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	envBaseURL := os.Getenv("LOGCTL_SERVER_URL")
	envToken := os.Getenv("LOGCTL_API_TOKEN")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envBaseURL, "Server base URL (overrides LOGCTL_SERVER_URL; default "+client.DefaultBaseURL+")")
	rootCmd.PersistentFlags().StringVar(&serverToken, "token", envToken, "Bearer token sent to the server (overrides LOGCTL_API_TOKEN)")

	rootCmd.AddCommand(cli.NewSubmitCmd())
	rootCmd.AddCommand(cli.NewGetCmd())
	rootCmd.AddCommand(cli.NewListCmd())
	rootCmd.AddCommand(cli.NewDeleteCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())
}

func Root() *cobra.Command {
	return rootCmd
}

func resolveServerTarget() (string, string) {
	base := strings.TrimSpace(serverURL)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("LOGCTL_SERVER_URL"))
	}
	base = normalizeBaseURL(base)

	token := serverToken
	if token == "" {
		token = os.Getenv("LOGCTL_API_TOKEN")
	}

	return base, token
}

// normalizeBaseURL adds a scheme when missing and the /v0 prefix when the
// URL has no path.
func normalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return client.DefaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	scheme, rest, _ := strings.Cut(trimmed, "://")
	if !strings.Contains(rest, "/") {
		return scheme + "://" + rest + "/v0"
	}
	return trimmed
}
