package bridge

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/types"
)

type statusResponse struct {
	State                string `json:"state"`
	DepositAmount        string `json:"depositAmount"`
	EgressAmount         string `json:"egressAmount"`
	DestinationTxRef     string `json:"egressTransactionRef"`
	CCMMessageSent       bool   `json:"ccmMessageSent"`
	LastStatechainUpdate int64  `json:"lastStatechainUpdateAt"`
}

// Terminal bridge states
const (
	StateComplete = "COMPLETE"
	StateFailed   = "FAILED"
)

// SwapStatus fetches the bridge-side progress of a swap. id is the swap id
// returned at submission, which for vault swaps is the source tx hash.
func (c *Client) SwapStatus(ctx context.Context, id string) (*types.SwapStatus, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, "swap id is required")
	}

	body, status, err := c.get(ctx, c.config.BackendURL+"/swaps/"+url.PathEscape(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch swap status")
	}
	if status == 404 {
		return nil, errors.Wrapf(apperrors.ErrNotFound, "swap %s", id)
	}
	if status < 200 || status >= 300 {
		return nil, errors.Errorf("bridge returned status %d: %s", status, errorMessage(body))
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "malformed swap status response")
	}
	if resp.State == "" {
		return nil, errors.New("swap status response has no state")
	}

	result := &types.SwapStatus{
		ID:             id,
		State:          resp.State,
		DepositAmount:  resp.DepositAmount,
		EgressAmount:   resp.EgressAmount,
		DestTxRef:      resp.DestinationTxRef,
		CCMMessageSent: resp.CCMMessageSent,
	}
	if resp.LastStatechainUpdate > 0 {
		result.UpdatedAt = time.UnixMilli(resp.LastStatechainUpdate).UTC()
	}
	return result, nil
}

// IsTerminal reports whether the bridge will make no further progress
func IsTerminal(state string) bool {
	return state == StateComplete || state == StateFailed
}
