package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dgallion1/syllabus/internal/parser"
	"github.com/dgallion1/syllabus/internal/pipeline"
	"github.com/dgallion1/syllabus/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func batchCmd(a *app) *cobra.Command {
	var (
		in           string
		out          string
		skipExisting bool
		workers      int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Extract every syllabus in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if out == "" {
				out = a.cfg.OutputDir
			}
			proc, err := a.processor(ctx)
			if err != nil {
				return err
			}
			files, graph, err := a.sinks(out)
			if err != nil {
				return err
			}

			res, err := runBatch(ctx, batchOptions{
				In:           in,
				Workers:      workers,
				SkipExisting: skipExisting,
			}, proc, files, sinkList(files, graph), a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d files in %s: %d succeeded, %d failed, %d skipped\n",
				res.Total, res.Elapsed.Round(time.Millisecond), res.Succeeded, res.Failed, res.Skipped)
			fmt.Fprintf(cmd.OutOrStdout(), "records written to %s\n", files.Dir())
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "output/md", "directory of converted syllabi")
	cmd.Flags().StringVar(&out, "out", "", "output directory (default from OUTPUT_DIR)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip inputs that already have a record")
	cmd.Flags().IntVar(&workers, "workers", 1, "documents processed in parallel")
	return cmd
}

type batchOptions struct {
	In           string
	Workers      int
	SkipExisting bool
}

type batchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}

// runBatch processes every supported file in opts.In. A failing document is
// logged and counted; it never stops the batch.
func runBatch(ctx context.Context, opts batchOptions, proc *pipeline.Processor, files *store.FileStore, sinks []store.Sink, log *slog.Logger) (batchResult, error) {
	start := time.Now()
	inputs, err := listInputs(opts.In)
	if err != nil {
		return batchResult{}, err
	}

	done := map[string]bool{}
	if opts.SkipExisting {
		if done, err = files.Sources(); err != nil {
			return batchResult{}, fmt.Errorf("read existing records: %w", err)
		}
	}

	var succeeded, failed, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))

	for i, path := range inputs {
		name := filepath.Base(path)
		if done[name] {
			log.Info("skipping existing", "file", name)
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			log := log.With("file", name, "n", i+1, "total", len(inputs))
			rec, rep, err := proc.ProcessFile(gctx, path)
			if err != nil {
				log.Error("document failed", "error", err)
				failed.Add(1)
				return nil
			}
			// A differently named input may map to a course already on disk.
			if opts.SkipExisting && files.Exists(rec) {
				log.Info("skipping existing record", "record", store.Filename(rec))
				skipped.Add(1)
				return nil
			}
			for _, s := range sinks {
				key, err := s.Put(gctx, rec)
				if err != nil {
					log.Error("store failed", "sink", s.Name(), "error", err)
					if s == store.Sink(files) {
						failed.Add(1)
						return nil
					}
					continue
				}
				log.Debug("record stored", "sink", s.Name(), "key", key)
			}
			log.Info("document done", "code", rec.Code, "name", rec.Name, "tables", len(rec.RequirementMappings), "degraded", rep.Degraded)
			succeeded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return batchResult{}, err
	}

	return batchResult{
		Total:     len(inputs),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
		Elapsed:   time.Since(start),
	}, nil
}

// listInputs returns the supported files directly inside dir, sorted.
func listInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
