package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/deploy"
	"github.com/shinji-kodama/docfill/internal/docker"
	"github.com/shinji-kodama/docfill/internal/envfile"
	"github.com/shinji-kodama/docfill/internal/health"
	"github.com/shinji-kodama/docfill/internal/model"
	"github.com/shinji-kodama/docfill/internal/port"
)

// upFlags holds the parsed flag values for the "up" command.
type upFlags struct {
	noBuild bool
	wait    bool
	port    int
	image   string
	name    string
}

// NewUpCommand creates the "up" subcommand, which builds the image and
// (re)starts the service container.
func NewUpCommand() *cobra.Command {
	flags := &upFlags{}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Build the image and (re)start the service container",
		Long: `Build the Document Filler image and run it.

The sequence is:
  1. Check that the Docker daemon is reachable
  2. Build the image (skip with --no-build)
  3. Create .env from .env.example if .env does not exist, then stop so
     GEMINI_API_KEY can be filled in
  4. Stop any running container publishing the service port
  5. Start a new container and print its URL

Examples:
  # First run: creates .env and exits
  docfill up

  # Rebuild and restart, then wait until the service answers
  docfill up --wait

  # Restart the existing image on another port
  docfill up --no-build --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.noBuild, "no-build", false, "Skip the image build")
	cmd.Flags().BoolVar(&flags.wait, "wait", false, "Wait until the service answers HTTP")
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Host port to publish (default from config, 8000)")
	cmd.Flags().StringVar(&flags.image, "image", "", "Image tag to build and run")
	cmd.Flags().StringVar(&flags.name, "name", "", "Container name")

	return cmd
}

// runUp loads the configuration and hands control to deploy.Runner.
func runUp(cmd *cobra.Command, flags *upFlags) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(config.Overrides{
		Image:         flags.image,
		ContainerName: flags.name,
		Port:          flags.port,
	})
	if err != nil {
		return err
	}

	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	// Build output is streamed to stderr in JSON mode so stdout stays
	// parseable.
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		out = cmd.ErrOrStderr()
	}

	runner := deploy.NewRunner(cli, cfg, logger, out)
	runner.Ports = port.NewScanner()
	runner.Prober = health.NewProber()

	result, err := runner.Up(ctx, deploy.UpOptions{NoBuild: flags.noBuild, Wait: flags.wait})
	if err != nil {
		return err
	}

	printUpResult(cmd.OutOrStdout(), result)
	return nil
}

func printUpResult(w io.Writer, result *deploy.Result) {
	if IsJSONOutput() {
		writeJSON(w, result)
		return
	}
	printUpResultText(w, result)
}

func printUpResultText(w io.Writer, result *deploy.Result) {
	if result.EnvCreated {
		fmt.Fprintf(w, "Created %s from template.\n", result.EnvFile)
		fmt.Fprintf(w, "Set %s in %s, then run \"docfill up\" again.\n", envfile.APIKeyVar, result.EnvFile)
		return
	}

	for _, name := range result.Stopped {
		fmt.Fprintf(w, "Stopped %s\n", name)
	}
	if result.Replaced {
		fmt.Fprintf(w, "Removed previous container %s\n", result.Name)
	}
	fmt.Fprintf(w, "Container %s started (%s)\n", result.Name, model.ContainerInfo{ID: result.ContainerID}.ShortID())
	if result.Health != nil {
		fmt.Fprintf(w, "Service ready after %d attempt(s) (HTTP %d)\n", result.Health.Attempts, result.Health.StatusCode)
	}
	fmt.Fprintf(w, "\nDocument Filler is running at %s\n", result.URL)
}
