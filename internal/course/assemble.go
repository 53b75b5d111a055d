// Package course assembles the course record of one syllabus from its four
// independently extracted facets.
package course

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/syllabus/internal/document"
	"github.com/dgallion1/syllabus/internal/escalate"
	"github.com/dgallion1/syllabus/internal/oracle"
	"github.com/dgallion1/syllabus/internal/record"
	"github.com/dgallion1/syllabus/internal/section"
)

// Facet names used in reports.
const (
	FacetIdentity  = "identity"
	FacetGoals     = "goals"
	FacetMappings  = "requirement_mappings"
	FacetRelations = "relations"
)

// Report describes how a record was produced.
type Report struct {
	Degraded      []string        // facets that fell back to sentinel or raw values
	MappingState  escalate.State  // terminal state of the mapping facet
	MappingSource escalate.Source // oracle that produced the mappings
	Escalated     bool
	MappingReason string
}

// Assembler builds course records. One assembler may serve many documents
// concurrently; it holds no per-document state.
type Assembler struct {
	oracle     oracle.Oracle
	controller *escalate.Controller
	locator    section.Locator
	log        *slog.Logger
	now        func() time.Time
}

// NewAssembler uses o for identity, goals and relations, and ctl for
// requirement mappings.
func NewAssembler(o oracle.Oracle, ctl *escalate.Controller, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	if ctl == nil {
		ctl = escalate.New(o, nil, log)
	}
	return &Assembler{
		oracle:     o,
		controller: ctl,
		log:        log,
		now:        time.Now,
	}
}

// WithIdentityLines bounds the prefix given to the identity oracle.
func (a *Assembler) WithIdentityLines(n int) *Assembler {
	a.locator.IdentityLines = n
	return a
}

// Assemble produces the course record for doc. It never fails: facets that
// cannot be extracted carry sentinel values.
func (a *Assembler) Assemble(ctx context.Context, doc *document.Document) *record.CourseRecord {
	rec, _ := a.AssembleWithReport(ctx, doc)
	return rec
}

// AssembleWithReport is Assemble plus a description of degraded facets.
func (a *Assembler) AssembleWithReport(ctx context.Context, doc *document.Document) (*record.CourseRecord, Report) {
	log := a.log.With("doc", doc.Key)
	var rep Report

	fileName := doc.Filename
	if fileName == "" {
		fileName = doc.Key
	}
	rec := &record.CourseRecord{
		FileName:    fileName,
		ProcessedAt: a.now().Format(record.TimestampLayout),
	}

	rec.Name, rec.Code = a.identity(ctx, doc, log)
	if rec.Name == record.NotFound || rec.Code == record.NotFound {
		rep.Degraded = append(rep.Degraded, FacetIdentity)
	}

	var ok bool
	rec.Goals, ok = a.goals(ctx, doc, log)
	if !ok {
		rep.Degraded = append(rep.Degraded, FacetGoals)
	}

	sec, present := a.locator.Locate(doc, section.RequirementMapping)
	res := a.controller.Resolve(ctx, sec, present)
	rec.RequirementMappings = res.Records
	if rec.RequirementMappings == nil {
		rec.RequirementMappings = []record.RequirementMappingRecord{}
	}
	rep.MappingState, rep.MappingSource, rep.Escalated, rep.MappingReason = res.State, res.Source, res.Escalated, res.Reason
	for _, m := range rec.RequirementMappings {
		if m.Failed() {
			rep.Degraded = append(rep.Degraded, FacetMappings)
			break
		}
	}

	rec.Relations, ok = a.relations(ctx, doc, log)
	if !ok {
		rep.Degraded = append(rep.Degraded, FacetRelations)
	}

	log.Info("course assembled",
		"name", rec.Name,
		"code", rec.Code,
		"goals", len(rec.Goals.Goals),
		"tables", len(rec.RequirementMappings),
		"mapping_source", res.Source,
		"degraded", rep.Degraded,
	)
	return rec, rep
}

// identity fills name and code from patterns first; the oracle only fills
// the fields the patterns missed.
func (a *Assembler) identity(ctx context.Context, doc *document.Document, log *slog.Logger) (string, string) {
	name, nameOK := ExtractName(doc)
	code, codeOK := ExtractCode(doc.Text)
	if nameOK && codeOK {
		return name, code
	}

	log.Info("identity incomplete, asking oracle", "has_name", nameOK, "has_code", codeOK)
	var got struct {
		Name string `json:"course_name"`
		Code string `json:"course_code"`
	}
	if err := a.ask(ctx, a.identityRequest(doc), &got); err != nil {
		log.Warn("identity oracle failed", "error", err)
	}
	if !nameOK {
		name = orNotFound(normalizeName(got.Name))
	}
	if !codeOK {
		code = orNotFound(strings.TrimSpace(got.Code))
	}
	return name, code
}

func (a *Assembler) identityRequest(doc *document.Document) oracle.Request {
	sec, _ := a.locator.Locate(doc, section.Identity)
	return oracle.IdentityRequest(sec.Text())
}

// goals reports false when the section is missing or could not be structured.
func (a *Assembler) goals(ctx context.Context, doc *document.Document, log *slog.Logger) (record.Goals, bool) {
	sec, ok := a.locator.Locate(doc, section.Goals)
	if !ok {
		log.Info("goals section not found")
		return record.Goals{Overview: record.GoalsNotFound, Goals: []record.Goal{}}, false
	}
	raw := sec.Text()
	var g record.Goals
	if err := a.ask(ctx, oracle.GoalsRequest(raw), &g); err != nil {
		log.Warn("goals oracle failed, keeping raw text", "error", err)
		return record.Goals{Overview: raw, Goals: []record.Goal{}}, false
	}
	record.CleanGoals(&g)
	return g, true
}

const relationsFallbackLen = 200

// relations reports false when the section exists but could not be
// structured. A missing section is not a degradation.
func (a *Assembler) relations(ctx context.Context, doc *document.Document, log *slog.Logger) (record.Relations, bool) {
	empty := record.Relations{Prerequisites: []string{}, Subsequent: []string{}}
	sec, ok := a.locator.Locate(doc, section.Relations)
	if !ok {
		return empty, true
	}
	raw := sec.Text()

	if a.oracle == nil {
		return empty, false
	}
	out, err := a.oracle.Complete(ctx, oracle.RelationsRequest(raw))
	if err != nil {
		log.Warn("relations oracle failed", "error", err)
		return empty, false
	}
	var r record.Relations
	if err := oracle.Decode(out, &r); err != nil {
		log.Warn("relations response malformed, keeping raw prefix", "error", err)
		empty.Description = record.Truncate(raw, relationsFallbackLen)
		return empty, false
	}
	normalizeRelations(&r)
	return r, true
}

func (a *Assembler) ask(ctx context.Context, req oracle.Request, v any) error {
	if a.oracle == nil {
		return oracle.ErrNotConfigured
	}
	out, err := a.oracle.Complete(ctx, req)
	if err != nil {
		return err
	}
	return oracle.Decode(out, v)
}

func orNotFound(s string) string {
	if s == "" || s == record.NotFound {
		return record.NotFound
	}
	return s
}
