/*
Package cli provides command-line helpers used by the tagstream command.

Output Formatting:

Command results can be printed as text, JSON or YAML:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

The text format prints a map[string]string as sorted key=value lines, which
is how resolved tag sets are shown.

Errors and Exit Codes:

Commands return *ConfigError for unusable configuration and *CommandError for
failures while running. ExitCode maps them to the process exit status.

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	// ctx is cancelled on the first SIGINT or SIGTERM
*/
package cli
