package cli

import (
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/docker"
)

// NewLogsCommand creates the "logs" subcommand.
func NewLogsCommand() *cobra.Command {
	var (
		name string
		opts docker.LogsOptions
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the service container's logs",
		Long: `Print the logs of the service container. With --follow the command
streams new output until interrupted.

Examples:
  docfill logs
  docfill logs --follow --tail 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(config.Overrides{ContainerName: name})
			if err != nil {
				return err
			}

			cli, err := connectDocker(ctx)
			if err != nil {
				return err
			}
			defer cli.Close()

			VerboseLog("Reading logs of %s", cfg.ContainerName)
			return cli.Logs(ctx, cfg.ContainerName, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Container name (default from config)")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Follow log output")
	cmd.Flags().StringVar(&opts.Tail, "tail", "all", "Number of lines to show from the end")
	cmd.Flags().BoolVarP(&opts.Timestamps, "timestamps", "t", false, "Show timestamps")

	return cmd
}
