package journal

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/orchestrator"
	"flip-bridge/pkg/tokens"
	"flip-bridge/pkg/types"
)

func TestJournal_RecordAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.json")

	j, err := Open(path)
	require.NoError(t, err)
	assert.Zero(t, j.Count())

	require.NoError(t, j.Record(&Entry{ID: "a", Amount: "1", State: "succeeded", TxHash: "0xAbC", SwapID: "0xabc"}))
	require.NoError(t, j.Record(&Entry{ID: "b", Amount: "2", State: "failed"}))

	reloaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Count())

	e, err := reloaded.Get("0xabc")
	require.NoError(t, err)
	assert.Equal(t, "a", e.ID)

	_, err = reloaded.Get("missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestJournal_RecordKeepsCreatedAt(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "runs.json"))
	require.NoError(t, err)

	require.NoError(t, j.Record(&Entry{ID: "a", State: "submitting"}))
	first, err := j.Get("a")
	require.NoError(t, err)
	created := first.CreatedAt

	require.NoError(t, j.Record(&Entry{ID: "a", State: "succeeded"}))
	second, err := j.Get("a")
	require.NoError(t, err)
	assert.Equal(t, created, second.CreatedAt)
	assert.Equal(t, "succeeded", second.State)
}

func TestJournal_ListNewestFirst(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "runs.json"))
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.Record(&Entry{ID: "old", CreatedAt: base}))
	require.NoError(t, j.Record(&Entry{ID: "new", CreatedAt: base.Add(time.Hour)}))

	list := j.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
}

func TestJournal_SetBridgeState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(&Entry{ID: "a", SwapID: "0x01"}))

	require.NoError(t, j.SetBridgeState("0x01", "COMPLETE"))

	reloaded, err := Open(path)
	require.NoError(t, err)
	e, err := reloaded.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETE", e.BridgeState)
}

func TestJournal_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestFromRun(t *testing.T) {
	req := orchestrator.Request{
		SourceToken: tokens.WETH,
		DestToken:   tokens.PEPE,
		Amount:      "1",
		Recipient:   common.HexToAddress("0x67ff09c184d8e9e7B90C5187ED04cbFbDba741C8"),
	}
	result := &orchestrator.Result{
		RunID:     "run-1",
		State:     orchestrator.StateSucceeded,
		StartedAt: time.Now(),
		NetAmount: "0.98",
		Gas:       &types.GasBudget{NativeTokenNeededWei: big.NewInt(20)},
		BridgeParams: &types.BridgeSwapParams{
			Amount: big.NewInt(1020),
		},
		BridgeQuote: &types.BridgeQuoteResult{ExpectedOutputAmount: big.NewInt(1000)},
		FinalQuote:  &types.SwapQuoteResult{QuoteOut: "123"},
		Submission: &types.SubmissionResult{
			TxHash: common.HexToHash("0x01"),
			SwapID: "0x01",
		},
	}

	e := FromRun(req, result, nil)
	assert.Equal(t, "run-1", e.ID)
	assert.Equal(t, "succeeded", e.State)
	assert.Equal(t, "20", e.GasBudgetWei)
	assert.Equal(t, "1020", e.BridgeAmount)
	assert.Equal(t, "1000", e.ExpectedOutput)
	assert.Equal(t, "123", e.QuoteOut)
	assert.Equal(t, "0x01", e.SwapID)
	assert.Empty(t, e.Error)

	failed := FromRun(req, &orchestrator.Result{RunID: "run-2", State: orchestrator.StateFailed},
		&orchestrator.RunError{Stage: orchestrator.StateEstimatingGas, Err: apperrors.ErrGasEstimationFailed})
	assert.Equal(t, "estimating_gas", failed.FailedStage)
	assert.NotEmpty(t, failed.Error)
}
