package main

import (
	"fmt"

	"github.com/dgallion1/syllabus/internal/store"
	"github.com/spf13/cobra"
)

func extractCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract the course record of one syllabus and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			proc, err := a.processor(ctx)
			if err != nil {
				return err
			}
			rec, rep, err := proc.ProcessFile(ctx, args[0])
			if err != nil {
				return err
			}
			if len(rep.Degraded) > 0 {
				a.log.Warn("record degraded", "facets", rep.Degraded)
			}

			if out != "" {
				files, graph, err := a.sinks(out)
				if err != nil {
					return err
				}
				for _, s := range sinkList(files, graph) {
					key, err := s.Put(ctx, rec)
					if err != nil {
						return fmt.Errorf("store %s: %w", s.Name(), err)
					}
					a.log.Info("record stored", "sink", s.Name(), "key", key)
				}
			}

			data, err := store.Marshal(rec)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "also save the record into this directory")
	return cmd
}
