package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var formatFlag string

	ctx := newCommandContext(&configFlag, &formatFlag)

	rootCmd := &cobra.Command{
		Use:           "djctl",
		Short:         "Conduit DJ command line tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch formatFlag {
			case formatTable, formatJSON:
			default:
				return fmt.Errorf("unsupported --format %q (use table or json)", formatFlag)
			}
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", formatTable, "Output format: table or json")

	rootCmd.AddCommand(newCamelotCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
