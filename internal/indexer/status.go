package indexer

import (
	"sort"
	"sync"
	"time"
)

type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// FileStatus is the last known state of a dispatched file.
type FileStatus struct {
	FilePath  string    `json:"file_path" yaml:"file_path"`
	State     State     `json:"state" yaml:"state"`
	Documents int       `json:"documents" yaml:"documents"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// StatusTable records the progress of background ingestion units, which
// otherwise report to nobody.
type StatusTable struct {
	mu    sync.RWMutex
	files map[string]*FileStatus
}

func NewStatusTable() *StatusTable {
	return &StatusTable{files: make(map[string]*FileStatus)}
}

func (s *StatusTable) set(filePath string, state State, documents int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &FileStatus{FilePath: filePath, State: state, Documents: documents, UpdatedAt: time.Now()}
	if err != nil {
		status.Error = err.Error()
	}
	s.files[filePath] = status
}

func (s *StatusTable) queued(filePath string)      { s.set(filePath, StateQueued, 0, nil) }
func (s *StatusTable) running(filePath string)     { s.set(filePath, StateRunning, 0, nil) }
func (s *StatusTable) done(filePath string, n int) { s.set(filePath, StateDone, n, nil) }

func (s *StatusTable) failed(filePath string, err error) {
	s.set(filePath, StateFailed, 0, err)
}

func (s *StatusTable) Get(filePath string) (FileStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.files[filePath]
	if !ok {
		return FileStatus{}, false
	}
	return *status, true
}

// List returns every known status ordered by path.
func (s *StatusTable) List() []FileStatus {
	s.mu.RLock()
	out := make([]FileStatus, 0, len(s.files))
	for _, status := range s.files {
		out = append(out, *status)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out
}
