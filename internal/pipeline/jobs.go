package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/syllabus/internal/course"
	"github.com/dgallion1/syllabus/internal/record"
	"github.com/google/uuid"
)

// JobStatus represents the state of an extraction job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusAssembling JobStatus = "assembling"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the state of a single syllabus extraction.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	record   *record.CourseRecord
	report   course.Report
	errors   []string
}

// Progress summarises what the job produced so far.
type Progress struct {
	CourseCode    string   `json:"course_code,omitempty"`
	CourseName    string   `json:"course_name,omitempty"`
	Goals         int      `json:"goals"`
	Tables        int      `json:"tables"`
	MappingSource string   `json:"mapping_source,omitempty"`
	Escalated     bool     `json:"escalated"`
	Degraded      []string `json:"degraded"`
	Outputs       []string `json:"outputs"`
	Errors        []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded file.
func NewJob(filename string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// FindByHash returns another finished job with a record for the same
// content, if one is still retained.
func (s *JobStore) FindByHash(hash, excludeID string) *Job {
	if hash == "" {
		return nil
	}
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for id, j := range s.jobs {
		if id != excludeID {
			jobs = append(jobs, j)
		}
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.mu.Lock()
		match := j.ContentHash == hash && j.record != nil &&
			(j.Status == StatusCompleted || j.Status == StatusPartial)
		j.mu.Unlock()
		if match {
			return j
		}
	}
	return nil
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash of the parsed text.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
}

// SetRecord stores the assembled record and its report.
func (j *Job) SetRecord(rec *record.CourseRecord, rep course.Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.record = rec
	j.report = rep
	j.Progress.CourseCode = rec.Code
	j.Progress.CourseName = rec.Name
	j.Progress.Goals = len(rec.Goals.Goals)
	j.Progress.Tables = len(rec.RequirementMappings)
	j.Progress.MappingSource = string(rep.MappingSource)
	j.Progress.Escalated = rep.Escalated
	j.Progress.Degraded = append([]string(nil), rep.Degraded...)
	j.UpdatedAt = time.Now()
}

// Record returns the assembled record, or nil before assembly.
func (j *Job) Record() *record.CourseRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.record
}

// Report returns the assembly report.
func (j *Job) Report() course.Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.report
}

// AddOutput records where the record was stored.
func (j *Job) AddOutput(sink, key string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Outputs = append(j.Progress.Outputs, sink+":"+key)
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = nonNil(append([]string(nil), j.Progress.Errors...))
	p.Degraded = nonNil(append([]string(nil), j.Progress.Degraded...))
	p.Outputs = nonNil(append([]string(nil), j.Progress.Outputs...))
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress:    p,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
