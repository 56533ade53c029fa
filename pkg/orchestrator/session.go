package orchestrator

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"flip-bridge/pkg/amount"
	"flip-bridge/pkg/apperrors"
)

// Session guards displayed results against runs that were started for an
// amount the user has since changed. Begin is called whenever the input
// changes; Commit applies a finished run's result only if its amount is
// still current. In-flight requests are not aborted.
type Session struct {
	mu      sync.Mutex
	current string
	pending map[string]string
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{pending: make(map[string]string)}
}

// Begin records amount as the current input and returns the id of the run
// started for it.
func (s *Session) Begin(amt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.current = amt
	s.pending[id] = amt
	return id
}

// Commit runs apply if runID was started for the current amount and returns
// ErrStaleRun otherwise. Each run id can be committed once.
func (s *Session) Commit(runID string, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	amt, ok := s.pending[runID]
	if !ok {
		return errors.Wrapf(apperrors.ErrStaleRun, "unknown run %s", runID)
	}
	delete(s.pending, runID)

	if !sameAmount(amt, s.current) {
		return errors.Wrapf(apperrors.ErrStaleRun, "run for %s superseded by %s", amt, s.current)
	}
	if apply != nil {
		apply()
	}
	return nil
}

// IsStale reports whether err only signals a superseded run, which callers
// drop without showing anything.
func IsStale(err error) bool {
	return errors.Is(err, apperrors.ErrStaleRun)
}

func sameAmount(a, b string) bool {
	da, errA := amount.Parse(a)
	db, errB := amount.Parse(b)
	if errA != nil || errB != nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return da.Equal(db)
}
