package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the local oracle is reachable and has the configured model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			local := a.localOracle()
			defer local.Close()

			w := cmd.OutOrStdout()
			models, err := local.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("local oracle at %s unreachable: %w", a.cfg.LocalURL, err)
			}
			fmt.Fprintf(w, "local oracle: %s\n", a.cfg.LocalURL)
			fmt.Fprintf(w, "installed models: %s\n", strings.Join(models, ", "))

			ok, err := local.HasModel(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("model %s is not installed; run: ollama pull %s", a.cfg.LocalModel, a.cfg.LocalModel)
			}
			fmt.Fprintf(w, "model %s: ok\n", a.cfg.LocalModel)

			if a.cfg.RemoteEnabled() {
				fmt.Fprintf(w, "remote oracle: %s\n", a.cfg.RemoteProvider)
			} else {
				fmt.Fprintln(w, "remote oracle: disabled")
			}
			return nil
		},
	}
}
