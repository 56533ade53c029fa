package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"flip-bridge/pkg/apperrors"
)

const (
	DefaultFileName = ".flip-bridge-runs.json"
)

// Entry is the journaled outcome of one orchestration run
type Entry struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	SourceToken    string    `json:"source_token"`
	DestToken      string    `json:"dest_token"`
	Amount         string    `json:"amount"`
	NetAmount      string    `json:"net_amount,omitempty"`
	QuoteOut       string    `json:"quote_out,omitempty"`
	GasBudgetWei   string    `json:"gas_budget_wei,omitempty"`
	BridgeAmount   string    `json:"bridge_amount,omitempty"`
	ExpectedOutput string    `json:"expected_output,omitempty"`
	Recipient      string    `json:"recipient"`
	DryRun         bool      `json:"dry_run"`
	State          string    `json:"state"`
	FailedStage    string    `json:"failed_stage,omitempty"`
	Error          string    `json:"error,omitempty"`
	TxHash         string    `json:"tx_hash,omitempty"`
	SwapID         string    `json:"swap_id,omitempty"`
	BridgeState    string    `json:"bridge_state,omitempty"`
}

// Journal persists run entries in a JSON file
type Journal struct {
	filePath string
	mu       sync.RWMutex
	entries  map[string]*Entry
}

type fileFormat struct {
	Runs map[string]*Entry `json:"runs"`
}

// Open loads the journal at filePath, or ~/.flip-bridge-runs.json when empty.
// A missing file is created on first write.
func Open(filePath string) (*Journal, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get home directory")
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	j := &Journal{
		filePath: filePath,
		entries:  make(map[string]*Entry),
	}

	if err := j.load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "failed to load journal")
	}
	return j, nil
}

func (j *Journal) load() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(j.filePath)
	if err != nil {
		return err
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return errors.Wrap(err, "failed to unmarshal runs")
	}
	if f.Runs != nil {
		j.entries = f.Runs
	}
	return nil
}

// saveLocked writes the journal atomically. Callers hold j.mu.
func (j *Journal) saveLocked() error {
	data, err := json.MarshalIndent(fileFormat{Runs: j.entries}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal runs")
	}

	if err := os.MkdirAll(filepath.Dir(j.filePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	tempFile := j.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write runs")
	}
	if err := os.Rename(tempFile, j.filePath); err != nil {
		return errors.Wrap(err, "failed to rename temp file")
	}
	return nil
}

// Record inserts or replaces an entry
func (j *Journal) Record(e *Entry) error {
	if e == nil || e.ID == "" {
		return errors.New("entry has no id")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := j.entries[e.ID]; ok && e.CreatedAt.IsZero() {
		e.CreatedAt = existing.CreatedAt
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	j.entries[e.ID] = e
	return j.saveLocked()
}

// Get finds an entry by run id, swap id or tx hash
func (j *Journal) Get(id string) (*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if e, ok := j.entries[id]; ok {
		return e, nil
	}
	for _, e := range j.entries {
		if e.SwapID != "" && strings.EqualFold(e.SwapID, id) {
			return e, nil
		}
		if e.TxHash != "" && strings.EqualFold(e.TxHash, id) {
			return e, nil
		}
	}
	return nil, errors.Wrapf(apperrors.ErrNotFound, "run '%s'", id)
}

// SetBridgeState records the latest bridge-side state of a submitted run
func (j *Journal) SetBridgeState(id, state string) error {
	e, err := j.Get(id)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	e.BridgeState = state
	e.UpdatedAt = time.Now().UTC()
	return j.saveLocked()
}

// List returns entries, newest first
func (j *Journal) List() []*Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]*Entry, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

// Count returns the number of journaled runs
func (j *Journal) Count() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Path returns the journal file path
func (j *Journal) Path() string {
	return j.filePath
}
