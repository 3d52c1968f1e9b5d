package main

import (
	"molgraph/internal/shared/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

type rootOptions struct {
	logLevel string
	verbose  bool
}

func (o *rootOptions) level(fallback string) zapcore.Level {
	if o.verbose {
		return zapcore.DebugLevel
	}
	if o.logLevel != "" {
		return logger.ParseLevel(o.logLevel)
	}
	return logger.ParseLevel(fallback)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "molgraph",
		Short:         "Turn macromolecular structures into graph datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newProcessCommand(opts),
		newInspectCommand(opts),
		newRunsCommand(opts),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("molgraph v%s\n", Version)
		},
	}
}
