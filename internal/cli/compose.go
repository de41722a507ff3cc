package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docfill/internal/compose"
	"github.com/shinji-kodama/docfill/internal/config"
)

// composeFlags holds the flag values shared by the compose subcommands.
type composeFlags struct {
	profiles []string
	build    bool
	volumes  bool
}

// NewComposeCommand creates the "compose" command group wrapping
// `docker compose` for the generated compose file.
func NewComposeCommand() *cobra.Command {
	flags := &composeFlags{}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Run the service through docker compose",
		Long: `Start or stop the service with docker compose using the profiles of
the compose file written by "docfill init --compose".

Profiles:
  prod   the built image, restarted unless stopped
  dev    source bind-mounted with auto reload

Examples:
  docfill compose up --build
  docfill compose up --profile dev
  docfill compose down --volumes`,
	}

	cmd.PersistentFlags().StringSliceVar(&flags.profiles, "profile", nil,
		"Compose profile(s) to activate (default from config, or prod)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Start the compose services in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newComposeRunner(cmd, flags)
			if err != nil {
				return err
			}
			if err := runner.Up(cmd.Context(), flags.build); err != nil {
				return err
			}
			printComposeResult(cmd.OutOrStdout(), "up", runner)
			return nil
		},
	}
	up.Flags().BoolVar(&flags.build, "build", false, "Build images before starting")

	down := &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the compose services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newComposeRunner(cmd, flags)
			if err != nil {
				return err
			}
			if err := runner.Down(cmd.Context(), flags.volumes); err != nil {
				return err
			}
			printComposeResult(cmd.OutOrStdout(), "down", runner)
			return nil
		},
	}
	down.Flags().BoolVar(&flags.volumes, "volumes", false, "Also remove named volumes")

	cmd.AddCommand(up, down)
	return cmd
}

// newComposeRunner resolves the compose file and profiles from the
// configuration and flags.
func newComposeRunner(cmd *cobra.Command, flags *composeFlags) (*compose.Runner, error) {
	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return nil, err
	}

	profiles := flags.profiles
	if len(profiles) == 0 {
		profiles = cfg.Compose.Profiles
	}
	if len(profiles) == 0 {
		profiles = []string{compose.ProfileProd}
	}
	VerboseLog("Using %s with profiles %v", cfg.Compose.File, profiles)

	// Compose runs against the same daemon the SDK client reaches.
	cli, err := connectDocker(cmd.Context())
	if err != nil {
		return nil, err
	}
	env := cli.CLIEnv()
	_ = cli.Close()

	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		out = cmd.ErrOrStderr()
	}
	return &compose.Runner{
		File:     cfg.Compose.File,
		Profiles: profiles,
		Stdout:   out,
		Stderr:   cmd.ErrOrStderr(),
		Env:      env,
	}, nil
}

func printComposeResult(w io.Writer, action string, runner *compose.Runner) {
	if IsJSONOutput() {
		writeJSON(w, map[string]interface{}{
			"action":   action,
			"file":     runner.File,
			"profiles": runner.Profiles,
		})
		return
	}
	fmt.Fprintf(w, "docker compose %s completed (profiles: %v)\n", action, runner.Profiles)
}
