// Command syllabus extracts structured course records from converted
// Chinese course syllabi.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var a app

	root := &cobra.Command{
		Use:           "syllabus",
		Short:         "Extract course records from syllabus documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("SYLLABUS_CONFIG"), "YAML config file (env vars override it)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: json|text (default from LOG_FORMAT)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error (default from LOG_LEVEL)")

	root.AddCommand(extractCmd(&a), batchCmd(&a), serveCmd(&a), checkCmd(&a))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
