package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docfill/internal/compose"
	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/envfile"
	"github.com/shinji-kodama/docfill/internal/model"
)

// initFlags holds the parsed flag values for the "init" command.
type initFlags struct {
	compose bool
	force   bool
}

// initResult is the JSON shape of the "init" output.
type initResult struct {
	EnvFile        string `json:"envFile"`
	EnvCreated     bool   `json:"envCreated"`
	ComposeFile    string `json:"composeFile,omitempty"`
	ComposeWritten bool   `json:"composeWritten"`
}

// NewInitCommand creates the "init" subcommand, which prepares .env and
// optionally a compose file without touching Docker.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .env from the template (and optionally a compose file)",
		Long: `Create the env file from its template when it does not exist yet.
An existing env file is never modified.

With --compose, also write a docker-compose.yml with a "prod" profile
(the built image) and a "dev" profile (source bind-mounted, auto reload).

Examples:
  docfill init
  docfill init --compose
  docfill init --compose --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.compose, "compose", false, "Also write the compose file")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite an existing compose file")

	return cmd
}

func runInit(w io.Writer, flags *initFlags) error {
	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return err
	}

	result := &initResult{EnvFile: cfg.EnvFile}
	result.EnvCreated, err = envfile.Bootstrap(cfg.EnvFile, cfg.EnvTemplate)
	if err != nil {
		return err
	}

	if flags.compose {
		result.ComposeFile = cfg.Compose.File
		data, err := compose.GenerateFile(cfg, time.Now())
		if err != nil {
			return model.WrapCLIError(model.KindComposeFailed, "failed to generate compose file", err)
		}
		err = compose.WriteFile(cfg.Compose.File, data, flags.force)
		switch {
		case errors.Is(err, compose.ErrExists):
			return model.NewCLIError(model.KindComposeFailed, err.Error())
		case err != nil:
			return model.WrapCLIError(model.KindComposeFailed, "failed to write compose file", err)
		}
		result.ComposeWritten = true
	}

	printInitResult(w, result)
	return nil
}

func printInitResult(w io.Writer, result *initResult) {
	if IsJSONOutput() {
		writeJSON(w, result)
		return
	}

	if result.EnvCreated {
		fmt.Fprintf(w, "Created %s. Set %s before running \"docfill up\".\n", result.EnvFile, envfile.APIKeyVar)
	} else {
		fmt.Fprintf(w, "%s already exists, left unchanged.\n", result.EnvFile)
	}
	if result.ComposeWritten {
		fmt.Fprintf(w, "Wrote %s\n", result.ComposeFile)
	}
}
