package oracle

import (
	"context"
	"log/slog"
	"time"
)

// Instrumented records latency for every call and logs its outcome.
type Instrumented struct {
	next  Oracle
	stats *Stats
	log   *slog.Logger
}

func Instrument(next Oracle, stats *Stats, log *slog.Logger) *Instrumented {
	if log == nil {
		log = slog.Default()
	}
	return &Instrumented{next: next, stats: stats, log: log}
}

func (i *Instrumented) Name() string { return i.next.Name() }

func (i *Instrumented) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := i.next.Complete(ctx, req)
	elapsed := time.Since(start)

	if i.stats != nil {
		i.stats.Record(i.next.Name(), elapsed.Milliseconds(), err != nil)
	}
	attrs := []any{
		"oracle", i.next.Name(),
		"task", req.Task,
		"input_tokens", EstimateTokens(req.System) + EstimateTokens(req.User),
		"duration_ms", elapsed.Milliseconds(),
	}
	if err != nil {
		i.log.Warn("oracle call failed", append(attrs, "error", err)...)
		return "", err
	}
	i.log.Debug("oracle call", append(attrs, "output_tokens", EstimateTokens(out))...)
	return out, nil
}
