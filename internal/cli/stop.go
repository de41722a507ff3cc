package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/model"
)

// stopFlags holds the parsed flag values for the "stop" command.
type stopFlags struct {
	port   int
	remove bool
}

// stopResult is the JSON shape of the "stop" output.
type stopResult struct {
	Port    int      `json:"port"`
	Stopped []string `json:"stopped"`
	Removed bool     `json:"removed"`
	Name    string   `json:"name"`
}

// NewStopCommand creates the "stop" subcommand.
func NewStopCommand() *cobra.Command {
	flags := &stopFlags{}

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop containers publishing the service port",
		Long: `Stop every running container that publishes the service port on the
host. Finding none is not an error.

With --remove, the configured container is removed as well so the next
"docfill up" starts from scratch.

Examples:
  docfill stop
  docfill stop --port 8080 --remove`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Host port (default from config)")
	cmd.Flags().BoolVar(&flags.remove, "remove", false, "Also remove the configured container")

	return cmd
}

func runStop(cmd *cobra.Command, flags *stopFlags) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(config.Overrides{Port: flags.port})
	if err != nil {
		return err
	}

	cli, err := connectDocker(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	result := &stopResult{Port: cfg.Port, Name: cfg.ContainerName, Stopped: []string{}}

	stopped, err := cli.StopPublishing(ctx, cfg.Port)
	result.Stopped = append(result.Stopped, stopped...)
	if err != nil {
		return model.WrapCLIError(model.KindGeneral, "some containers could not be stopped", err)
	}

	if flags.remove {
		result.Removed, err = cli.RemoveByName(ctx, cfg.ContainerName)
		if err != nil {
			return err
		}
	}

	printStopResult(cmd.OutOrStdout(), result)
	return nil
}

func printStopResult(w io.Writer, result *stopResult) {
	if IsJSONOutput() {
		writeJSON(w, result)
		return
	}

	if len(result.Stopped) == 0 {
		fmt.Fprintf(w, "No running container publishes port %d\n", result.Port)
	}
	for _, name := range result.Stopped {
		fmt.Fprintf(w, "Stopped %s\n", name)
	}
	if result.Removed {
		fmt.Fprintf(w, "Removed %s\n", result.Name)
	}
}
