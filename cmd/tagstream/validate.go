package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/tagstream/pkg/cli"
	"mercator-hq/tagstream/pkg/resolver/oci"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and print effective values",
	Long: `Load the configuration file and environment overrides, validate the
result and print the effective configuration with defaults applied.

Credentials are not loaded and no request is sent to OCI.

Examples:
  tagstream validate --config /etc/tagstream/config.yaml
  TAGSTREAM_PIPELINE_WORKERS=4 tagstream validate --format json`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.format, "format", "o", "yaml", "output format: json, yaml")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", "invalid flag", err)
	}
	// The configuration has no flat key=value form.
	if format == cli.FormatText {
		format = cli.FormatYAML
	}

	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	cmd.PrintErrf("configuration valid (%d namespaces supported)\n", len(oci.Namespaces()))
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cfg)
}
