package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eugenenazirov/node-allocator/internal/output"
)

const defaultCapacity = 64

var (
	// ErrRunNotFound indicates no run is stored under the requested id.
	ErrRunNotFound = errors.New("allocation run not found")
	// ErrInvalidCapacity indicates a non-positive history size.
	ErrInvalidCapacity = errors.New("run history capacity must be positive")
)

// Run is a completed allocation kept for later retrieval.
type Run struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	Report    output.Report `json:"report"`
}

// RunSummary describes a stored run without its assignments.
type RunSummary struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Summary   output.Summary `json:"summary"`
}

// Storage keeps completed allocation runs.
type Storage interface {
	Save(run Run) (string, error)
	Get(id string) (Run, error)
	List() []RunSummary
}

// MemoryStorage keeps the most recent runs in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	capacity int
	order    []string // Oldest first.
	runs     map[string]Run
	newID    func() string
}

// NewMemoryStorage returns storage retaining up to capacity runs.
func NewMemoryStorage(capacity int) (*MemoryStorage, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &MemoryStorage{
		capacity: capacity,
		runs:     make(map[string]Run, capacity),
		newID:    func() string { return uuid.NewString() },
	}, nil
}

// DefaultCapacity returns the number of runs retained when none is configured.
func DefaultCapacity() int {
	return defaultCapacity
}

// Save stores run under a fresh id, evicting the oldest run when full.
func (s *MemoryStorage) Save(run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ID = s.newID()
	if len(s.order) == s.capacity {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, run.ID)
	s.runs[run.ID] = run
	return run.ID, nil
}

// Get returns the run stored under id.
func (s *MemoryStorage) Get(id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return run, nil
}

// List summarises stored runs, newest first.
func (s *MemoryStorage) List() []RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunSummary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		run := s.runs[s.order[i]]
		out = append(out, RunSummary{
			ID:        run.ID,
			CreatedAt: run.CreatedAt,
			Summary:   run.Report.Summary,
		})
	}
	return out
}
