package orchestrator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_DropsSupersededRun(t *testing.T) {
	s := NewSession()
	displayed := ""

	first := s.Begin("1")
	second := s.Begin("2")

	err := s.Commit(first, func() { displayed = "quote for 1" })
	require.Error(t, err)
	assert.True(t, IsStale(err))
	assert.Empty(t, displayed)

	require.NoError(t, s.Commit(second, func() { displayed = "quote for 2" }))
	assert.Equal(t, "quote for 2", displayed)
}

func TestSession_EquivalentAmountsAreCurrent(t *testing.T) {
	s := NewSession()
	run := s.Begin("1.0")
	s.Begin("1")

	applied := false
	require.NoError(t, s.Commit(run, func() { applied = true }))
	assert.True(t, applied)
}

func TestSession_CommitOnce(t *testing.T) {
	s := NewSession()
	run := s.Begin("3")
	require.NoError(t, s.Commit(run, nil))
	assert.True(t, IsStale(s.Commit(run, nil)))
	assert.True(t, IsStale(s.Commit("unknown", nil)))
}

func TestSession_ConcurrentCommits(t *testing.T) {
	s := NewSession()
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = s.Begin("5")
	}
	last := s.Begin("6")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for _, id := range append(ids, last) {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = s.Commit(id, func() {
				mu.Lock()
				applied++
				mu.Unlock()
			})
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
}
