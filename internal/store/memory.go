package store

import (
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when nothing is stored for the requested key.
	ErrNotFound = errors.New("not found")
)

// Run outcomes recorded in the run log.
const (
	OutcomeAnnotated = "annotated"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// RunRecord describes one annotation run.
type RunRecord struct {
	RunID       string        `json:"runId"`
	AthleteID   int64         `json:"athleteId"`
	ActivityID  int64         `json:"activityId"`
	Timestamp   time.Time     `json:"timestamp"` // always UTC
	Duration    time.Duration `json:"durationNs"`
	Outcome     string        `json:"outcome"`
	Reason      string        `json:"reason,omitempty"`
	Name        string        `json:"name,omitempty"`
	Description string        `json:"description,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// RunHistory holds a time-ordered list of runs for one athlete.
type RunHistory struct {
	Runs []RunRecord
}

// RunLog is a concurrency-safe in-memory log of annotation runs.
type RunLog struct {
	mu sync.RWMutex

	// key: athlete id
	data map[int64]*RunHistory

	maxHistory int           // max number of runs per athlete
	maxAge     time.Duration // optional max age for runs
	now        func() time.Time
}

// NewRunLog creates a new RunLog with optional limits.
// If maxHistory or maxAge is <= 0, it is treated as unlimited.
func NewRunLog(maxHistory int, maxAge time.Duration) *RunLog {
	return &RunLog{
		data:       make(map[int64]*RunHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveRun inserts a run in timestamp order for its athlete and enforces
// retention. Runs finishing out of start order still land in place.
func (s *RunLog) SaveRun(run RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[run.AthleteID]
	if !ok {
		history = &RunHistory{}
		s.data[run.AthleteID] = history
	}

	// Insert after any run with the same timestamp.
	i := sort.Search(len(history.Runs), func(i int) bool {
		return history.Runs[i].Timestamp.After(run.Timestamp)
	})
	history.Runs = slices.Insert(history.Runs, i, run)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Runs) > s.maxHistory {
		over := len(history.Runs) - s.maxHistory
		history.Runs = history.Runs[over:]
	}

	s.pruneLocked(run.AthleteID, history, s.now())
}

// Prune drops runs older than the configured max age and returns how many
// were removed.
func (s *RunLog) Prune() int {
	if s.maxAge <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for athleteID, history := range s.data {
		removed += s.pruneLocked(athleteID, history, now)
	}
	return removed
}

func (s *RunLog) pruneLocked(athleteID int64, history *RunHistory, now time.Time) int {
	if s.maxAge <= 0 {
		return 0
	}

	cutoff := now.Add(-s.maxAge)
	i := 0
	for ; i < len(history.Runs); i++ {
		if !history.Runs[i].Timestamp.Before(cutoff) {
			break
		}
	}
	history.Runs = history.Runs[i:]
	if len(history.Runs) == 0 {
		delete(s.data, athleteID)
	}
	return i
}

// GetLatest returns the most recent run for an athlete.
func (s *RunLog) GetLatest(athleteID int64) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[athleteID]
	if !ok || len(history.Runs) == 0 {
		return RunRecord{}, ErrNotFound
	}
	return history.Runs[len(history.Runs)-1], nil
}

// GetRange returns all runs for an athlete between from and to (inclusive).
func (s *RunLog) GetRange(athleteID int64, from, to time.Time) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[athleteID]
	if !ok || len(history.Runs) == 0 {
		return nil, ErrNotFound
	}

	var result []RunRecord
	for _, run := range history.Runs {
		if !run.Timestamp.Before(from) && !run.Timestamp.After(to) {
			result = append(result, run)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
