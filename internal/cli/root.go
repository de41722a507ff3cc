// Package cli implements the cobra-based CLI commands for docfill.
//
// Each subcommand (up, build, init, stop, status, logs, health, compose) is
// defined in its own file within this package. This file defines the root
// command that serves as the parent for all subcommands and handles global
// flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/docker"
	"github.com/shinji-kodama/docfill/internal/model"
)

// Global flag variables shared across all subcommands, bound to cobra
// persistent flags on the root command.
var (
	// jsonOutput switches command output and errors to JSON.
	jsonOutput bool

	// verbose enables debug logging on stderr.
	verbose bool

	// configPath overrides the docfill.yaml lookup.
	configPath string
)

// logger is configured by the root command's PersistentPreRun.
var logger = newLogger(os.Stderr, false)

// version, commit, and date are set at build time via ldflags.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docfill",
		Short: "Build and run the Document Filler container",
		Long: `docfill builds the Document Filler image and runs it on the local
Docker host.

On first use it creates .env from .env.example and stops so you can set
GEMINI_API_KEY. After that, "docfill up" rebuilds the image, stops whatever
container publishes the service port, and starts a fresh one.`,

		// Errors and usage are printed by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(cmd.ErrOrStderr(), verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to docfill.yaml (default: ./docfill.yaml or $"+config.EnvConfigPath+")")

	rootCmd.AddCommand(NewUpCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewLogsCommand())
	rootCmd.AddCommand(NewHealthCommand())
	rootCmd.AddCommand(NewComposeCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code carried by a
// CLIError, or 1 for any other error.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	printError(os.Stderr, err)
	os.Exit(int(exitCodeFor(err)))
}

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return model.ExitGeneralError
}

// printError outputs an error in JSON or text depending on --json.
// Errors always go to stderr; stdout is reserved for command output.
func printError(w io.Writer, err error) {
	var cliErr *model.CLIError
	if !errors.As(err, &cliErr) {
		cliErr = &model.CLIError{Kind: model.KindGeneral, Message: err.Error()}
	}

	if jsonOutput {
		detail := map[string]interface{}{
			"kind":    string(cliErr.Kind),
			"message": cliErr.Message,
		}
		if cliErr.Err != nil {
			detail["detail"] = cliErr.Err.Error()
		}
		data, _ := json.MarshalIndent(map[string]interface{}{"error": detail}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if cliErr.Err != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", cliErr.Message, cliErr.Err)
	} else {
		fmt.Fprintf(w, "Error: %s\n", cliErr.Message)
	}
}

// newLogger builds the slog logger used for diagnostics on stderr.
// Verbose mode lowers the level to debug; otherwise only warnings show.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// VerboseLog prints a debug message when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig reads docfill.yaml (or the file named by --config /
// DOCFILL_CONFIG), applies flag overrides and validates the result.
func loadConfig(overrides config.Overrides) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.KindGeneral, "failed to get current directory", err)
	}

	path := config.ResolvePath(configPath, cwd)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, model.WrapCLIError(model.KindConfigInvalid, "failed to load configuration", err)
	}
	cfg.Apply(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Path() != "" {
		VerboseLog("Loaded configuration from %s", cfg.Path())
	} else {
		VerboseLog("No %s found, using defaults", config.DefaultFileName)
	}
	return cfg, nil
}

// connectDocker creates a Docker client and verifies the daemon answers.
// The caller must Close the returned client.
func connectDocker(ctx context.Context) (*docker.Client, error) {
	cli, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, err
	}
	VerboseLog("Connected to Docker daemon")
	return cli, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}
