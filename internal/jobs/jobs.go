// Package jobs tracks analysis runs in a concurrency-safe registry. The
// pipeline core stays persistence-free: callers inject a Store and nothing
// else in the system knows how jobs are kept.
package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctaworks/ctaopt/internal/cta"
)

// ErrNotFound reports a job id unknown to the store.
var ErrNotFound = errors.New("job not found")

// Kind is the input type a job analyzes.
type Kind string

const (
	KindURL   Kind = "url"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job tracks one analysis run from submission to completion.
type Job struct {
	ID          string       `json:"job_id"`
	Kind        Kind         `json:"input_type"`
	Status      Status       `json:"status"`
	Progress    int          `json:"progress"`
	Message     string       `json:"message,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Error       string       `json:"error_message,omitempty"`
	Result      *cta.Results `json:"result,omitempty"`
}

// New creates a pending job of the given kind with a fresh id.
func New(kind Kind) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetProgress advances the job and stamps the update time. A pending job
// moves to processing on its first progress report.
func (j *Job) SetProgress(progress int, message string) {
	j.Progress = progress
	j.Message = message
	j.UpdatedAt = time.Now().UTC()
	if j.Status == StatusPending {
		j.Status = StatusProcessing
	}
}

// Complete marks the job done with its results attached.
func (j *Job) Complete(res *cta.Results) {
	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.Progress = 100
	j.Result = res
	j.UpdatedAt = now
	j.CompletedAt = &now
}

// Fail marks the job failed with a human-readable reason. CompletedAt stays
// unset: only successful runs complete.
func (j *Job) Fail(reason string) {
	j.Status = StatusFailed
	j.Error = reason
	j.UpdatedAt = time.Now().UTC()
}

// Store is the persistence boundary for jobs. Implementations must be safe
// for concurrent use.
type Store interface {
	Get(id string) (*Job, error)
	Put(job *Job) error
	Delete(id string) error
	List() ([]*Job, error)
}

// MemoryStore keeps jobs in a mutex-guarded map. Records are held by value,
// so a caller mutating a returned job cannot corrupt the registry without
// writing it back through Put.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

func (s *MemoryStore) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := j
	return &out, nil
}

func (s *MemoryStore) Put(job *Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job must have an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

// List returns jobs newest first by creation time.
func (s *MemoryStore) List() ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		job := j
		out = append(out, &job)
	}
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out, nil
}
