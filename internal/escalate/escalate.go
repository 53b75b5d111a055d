// Package escalate structures requirement mapping tables, escalating from
// the local oracle to the remote one when the local result looks broken.
package escalate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/dgallion1/syllabus/internal/oracle"
	"github.com/dgallion1/syllabus/internal/record"
	"github.com/dgallion1/syllabus/internal/section"
	"github.com/dgallion1/syllabus/internal/table"
)

// State is the terminal state of a resolution.
type State int

const (
	ResolvedEmpty State = iota
	Resolved
)

func (s State) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "resolved_empty"
}

// Source says which oracle produced the returned records.
type Source string

const (
	SourceNone   Source = "none"
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Resolution is the outcome of resolving one mapping section.
type Resolution struct {
	Records   []record.RequirementMappingRecord
	State     State
	Source    Source
	Escalated bool   // the remote oracle was called
	Reason    string // why the section is empty, or why local was rejected
}

// DefaultMinTables is the number of parsed tables below which a local
// result counts as failed.
const DefaultMinTables = 2

// Controller runs the local-then-remote strategy. Remote may be nil, in
// which case failing local results are returned as they are.
type Controller struct {
	local     oracle.Oracle
	remote    oracle.Oracle
	log       *slog.Logger
	minTables int
}

func New(local, remote oracle.Oracle, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{local: local, remote: remote, log: log, minTables: DefaultMinTables}
}

// WithMinTables overrides the table count threshold of the failure check.
func (c *Controller) WithMinTables(n int) *Controller {
	if n > 0 {
		c.minTables = n
	}
	return c
}

// Resolve structures the mapping section. present is false when the section
// was not located. Oracle failures never escape; they become fallback
// records.
func (c *Controller) Resolve(ctx context.Context, sec section.Section, present bool) Resolution {
	if !present {
		return Resolution{Records: []record.RequirementMappingRecord{}, State: ResolvedEmpty, Source: SourceNone, Reason: "section absent"}
	}
	if err := section.CheckMapping(sec); err != nil {
		reason := err.Error()
		if errors.Is(err, section.ErrEmptyByDeclaration) {
			if d := section.Disqualifier(sec); d != "" {
				reason += ": " + d
			}
		}
		c.log.Info("mapping section empty", "reason", reason)
		return Resolution{Records: []record.RequirementMappingRecord{}, State: ResolvedEmpty, Source: SourceNone, Reason: reason}
	}

	candidates := table.Extract(sec.Text())
	local := make([]record.RequirementMappingRecord, 0, len(candidates))
	for i, cand := range candidates {
		repaired := table.Repair(cand.Text)
		rec := c.structureTable(ctx, repaired)
		if rec.Failed() {
			c.log.Warn("table structuring failed", "table", i, "error", rec.Error)
		}
		local = append(local, rec)
	}
	c.log.Info("local structuring complete", "candidates", len(candidates), "records", len(local))

	res := Resolution{Records: local, State: Resolved, Source: SourceLocal}
	reason := Diagnose(local, c.minTables)
	if reason == "" {
		return res
	}
	res.Reason = reason
	if c.remote == nil {
		c.log.Info("local result failed, no remote oracle configured", "reason", reason)
		return res
	}

	res.Escalated = true
	c.log.Info("escalating to remote oracle", "reason", reason, "oracle", c.remote.Name())
	remote := c.structureSection(ctx, sec.Text())
	if len(remote) == 0 {
		c.log.Warn("remote returned no records, keeping local result")
		return res
	}
	if why := Diagnose(remote, c.minTables); why != "" {
		c.log.Warn("remote result also failed, keeping local result", "reason", why)
		return res
	}

	res.Records = remote
	res.Source = SourceRemote
	c.log.Info("remote result accepted", "records", len(remote))
	return res
}

// Diagnose returns why a set of records is considered failed, or "" when it
// is acceptable.
func Diagnose(records []record.RequirementMappingRecord, minTables int) string {
	if len(records) == 0 {
		return "no records"
	}
	withMappings := 0
	for _, r := range records {
		if r.Failed() {
			return "record carries error marker"
		}
		if len(r.Mappings) > 0 {
			withMappings++
		}
	}
	if withMappings == 0 {
		return "no record has mappings"
	}
	if withMappings < minTables {
		return "too few tables with mappings"
	}
	return ""
}

func (c *Controller) structureTable(ctx context.Context, text string) record.RequirementMappingRecord {
	if c.local == nil {
		return record.FallbackMapping(text, oracle.ErrNotConfigured)
	}
	raw, err := c.local.Complete(ctx, oracle.TableRequest(text))
	if err != nil {
		return record.FallbackMapping(text, err)
	}
	var rec record.RequirementMappingRecord
	if err := oracle.Decode(raw, &rec); err != nil {
		return record.FallbackMapping(text, err)
	}
	record.CleanMapping(&rec)
	c.checkMajor(rec)
	return rec
}

// structureSection asks the remote oracle for every table at once. A call
// or decode failure yields a single fallback record.
func (c *Controller) structureSection(ctx context.Context, text string) []record.RequirementMappingRecord {
	raw, err := c.remote.Complete(ctx, oracle.SectionRequest(text))
	if err != nil {
		return []record.RequirementMappingRecord{record.FallbackMapping(text, err)}
	}
	recs, err := DecodeRecords(raw)
	if err != nil {
		return []record.RequirementMappingRecord{record.FallbackMapping(text, err)}
	}
	for i := range recs {
		record.CleanMapping(&recs[i])
		c.checkMajor(recs[i])
	}
	return recs
}

func (c *Controller) checkMajor(rec record.RequirementMappingRecord) {
	if !record.MajorConsistent(rec) {
		c.log.Warn("major does not match table title", "title", rec.Title, "major", rec.Major)
	}
}

// DecodeRecords parses model output holding either an array of records or
// a single record object.
func DecodeRecords(raw string) ([]record.RequirementMappingRecord, error) {
	var recs []record.RequirementMappingRecord
	arrErr := oracle.Decode(raw, &recs)
	if arrErr == nil {
		return recs, nil
	}
	obj := oracle.FindFirstJSON(oracle.StripCodeBlock(raw))
	if strings.HasPrefix(obj, "{") {
		var one record.RequirementMappingRecord
		if err := json.Unmarshal([]byte(obj), &one); err == nil {
			return []record.RequirementMappingRecord{one}, nil
		}
	}
	return nil, arrErr
}
