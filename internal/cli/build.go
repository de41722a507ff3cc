package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docfill/internal/config"
	"github.com/shinji-kodama/docfill/internal/deploy"
)

// NewBuildCommand creates the "build" subcommand, which only builds the
// image.
func NewBuildCommand() *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the service image",
		Long: `Build the Document Filler image from the configured Dockerfile without
starting anything.

Examples:
  docfill build
  docfill build --image document-filler:dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(config.Overrides{Image: image})
			if err != nil {
				return err
			}

			cli, err := connectDocker(ctx)
			if err != nil {
				return err
			}
			defer cli.Close()

			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				out = cmd.ErrOrStderr()
			}
			if err := deploy.NewRunner(cli, cfg, logger, out).Build(ctx, false); err != nil {
				return err
			}

			if IsJSONOutput() {
				writeJSON(cmd.OutOrStdout(), map[string]interface{}{"image": cfg.Image, "built": true})
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Built image %s\n", cfg.Image)
			return nil
		},
	}

	cmd.Flags().StringVar(&image, "image", "", "Image tag to build")
	return cmd
}
