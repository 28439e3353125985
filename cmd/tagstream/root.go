package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/tagstream/pkg/cli"
	"mercator-hq/tagstream/pkg/config"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "tagstream",
	Short: "Enrich OCI metric streams with resource tags",
	Long: `Tagstream reads OCI monitoring metrics as InfluxDB line protocol on
standard input and writes them to standard output with the defined and
freeform tags of the resource each metric describes.

Tags are looked up through the OCI control plane and cached in memory.
Configuration is read from a YAML file and TAGSTREAM_* environment
variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: "+config.DefaultConfigPath+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}
