package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the state of an ingestion run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run tracks one batch ingestion from submission to report.
type Run struct {
	mu sync.Mutex

	ID        string
	Status    RunStatus
	Paths     []string
	Report    *Report
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRun creates a queued run for the given document paths.
func NewRun(paths []string) *Run {
	now := time.Now()
	return &Run{
		ID:        uuid.NewString(),
		Status:    RunQueued,
		Paths:     paths,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetRunning marks the run as in progress.
func (r *Run) SetRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunRunning
	r.UpdatedAt = time.Now()
}

// Complete attaches the final report.
func (r *Run) Complete(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunCompleted
	r.Report = &report
	r.UpdatedAt = time.Now()
}

// Fail records a whole-run failure (empty input, pool construction).
func (r *Run) Fail(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunFailed
	r.Error = msg
	r.UpdatedAt = time.Now()
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	Documents int       `json:"documents"`
	Report    *Report   `json:"report,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunSnapshot{
		ID:        r.ID,
		Status:    r.Status,
		Documents: len(r.Paths),
		Report:    r.Report,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Cleanup removes runs idle longer than the TTL.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		expired := now.Sub(run.UpdatedAt) > s.ttl
		run.mu.Unlock()
		if expired {
			delete(s.runs, id)
		}
	}
}
