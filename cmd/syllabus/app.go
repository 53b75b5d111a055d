package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dgallion1/syllabus/internal/config"
	"github.com/dgallion1/syllabus/internal/course"
	"github.com/dgallion1/syllabus/internal/escalate"
	"github.com/dgallion1/syllabus/internal/oracle"
	"github.com/dgallion1/syllabus/internal/parser"
	"github.com/dgallion1/syllabus/internal/pathstore"
	"github.com/dgallion1/syllabus/internal/pipeline"
	"github.com/dgallion1/syllabus/internal/store"
)

// app holds what every subcommand shares: settings, logger and the
// oracle latency window.
type app struct {
	configPath string
	logFormat  string
	logLevel   string

	cfg   config.Config
	log   *slog.Logger
	stats *oracle.Stats
}

func (a *app) init(w io.Writer) error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	if a.logFormat != "" {
		cfg.LogFormat = strings.ToLower(a.logFormat)
	}
	if a.logLevel != "" {
		cfg.LogLevel = strings.ToLower(a.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.log = newLogger(w, cfg.LogFormat, cfg.LogLevel)
	a.stats = oracle.NewStats(cfg.StatsWindow)
	return nil
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// localOracle is the Ollama client; it is also used by the check command.
func (a *app) localOracle() *oracle.OllamaClient {
	return oracle.NewOllamaClient(a.cfg.LocalURL, a.cfg.LocalModel, a.cfg.LocalTimeout)
}

// processor wires the oracles, escalation controller and assembler.
func (a *app) processor(ctx context.Context) (*pipeline.Processor, error) {
	local := oracle.Instrument(a.localOracle(), a.stats, a.log)

	var remote oracle.Oracle
	r, err := oracle.NewRemote(ctx, oracle.RemoteConfig{
		Provider: a.cfg.RemoteProvider,
		APIKey:   a.cfg.RemoteAPIKey,
		BaseURL:  a.cfg.RemoteBaseURL,
		Model:    a.cfg.RemoteModel,
		Timeout:  a.cfg.RemoteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("remote oracle: %w", err)
	}
	if r != nil {
		remote = oracle.Instrument(r, a.stats, a.log)
		a.log.Info("remote oracle enabled", "oracle", r.Name())
	} else {
		a.log.Info("remote oracle disabled, failing tables will not be escalated")
	}

	ctl := escalate.New(local, remote, a.log).WithMinTables(a.cfg.MinTables)
	asm := course.NewAssembler(local, ctl, a.log).WithIdentityLines(a.cfg.IdentityPrefixLines)
	return pipeline.NewProcessor(asm, parser.Options{PDFFallbackPdftotext: a.cfg.PDFFallbackPdftotext}, a.log), nil
}

// sinks returns the file store and, when configured, the pathstore sink.
func (a *app) sinks(outDir string) (*store.FileStore, *store.PathstoreSink, error) {
	files, err := store.NewFileStore(outDir)
	if err != nil {
		return nil, nil, err
	}
	if !a.cfg.PathstoreEnabled() {
		return files, nil, nil
	}
	client := pathstore.NewClient(a.cfg.PathstoreURL, a.cfg.PathstoreAPIKey)
	return files, store.NewPathstoreSink(client, a.cfg.PathstorePrefix), nil
}

func sinkList(files *store.FileStore, graph *store.PathstoreSink) []store.Sink {
	out := []store.Sink{files}
	if graph != nil {
		out = append(out, graph)
	}
	return out
}
