package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/deploy"
	"github.com/shinji-kodama/docfill/internal/health"
	"github.com/shinji-kodama/docfill/internal/model"
)

// NewHealthCommand creates the "health" subcommand.
func NewHealthCommand() *cobra.Command {
	var (
		portFlag int
		wait     bool
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the service answers HTTP",
		Long: `Send a GET request to the service's health path. Any response below
500 counts as healthy.

With --wait, retry with exponential backoff until the configured health
timeout expires.

Examples:
  docfill health
  docfill health --wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(config.Overrides{Port: portFlag})
			if err != nil {
				return err
			}

			url := deploy.URL(cfg.Port) + cfg.Health.Path
			prober := health.NewProber()

			var result *health.Result
			if wait {
				VerboseLog("Waiting up to %s for %s", cfg.Health.Timeout, url)
				result, err = prober.WaitReady(ctx, url, cfg.Health.Timeout)
			} else {
				result, err = prober.Probe(ctx, url)
			}
			if err != nil {
				return model.WrapCLIError(model.KindGeneral,
					fmt.Sprintf("service at %s is not healthy", url), err)
			}

			printHealthResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Host port (default from config)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Retry until the health timeout expires")

	return cmd
}

func printHealthResult(w io.Writer, result *health.Result) {
	if IsJSONOutput() {
		writeJSON(w, result)
		return
	}
	fmt.Fprintf(w, "%s is healthy (HTTP %d, %s, %d attempt(s))\n",
		result.URL, result.StatusCode, result.Latency.Round(time.Millisecond), result.Attempts)
}
