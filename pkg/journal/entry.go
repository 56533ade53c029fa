package journal

import (
	"github.com/pkg/errors"

	"flip-bridge/pkg/orchestrator"
)

// FromRun builds an entry from an orchestration result and the error the run
// returned, if any.
func FromRun(req orchestrator.Request, result *orchestrator.Result, runErr error) *Entry {
	e := &Entry{
		SourceToken: req.SourceToken.Symbol,
		DestToken:   req.DestToken.Symbol,
		Amount:      req.Amount,
		Recipient:   req.Recipient.Hex(),
		DryRun:      req.DryRun,
	}
	if result == nil {
		e.State = string(orchestrator.StateFailed)
	} else {
		e.ID = result.RunID
		e.CreatedAt = result.StartedAt.UTC()
		e.State = string(result.State)
		e.NetAmount = result.NetAmount
		if result.FinalQuote != nil {
			e.QuoteOut = result.FinalQuote.QuoteOut
		}
		if result.Gas != nil && result.Gas.NativeTokenNeededWei != nil {
			e.GasBudgetWei = result.Gas.NativeTokenNeededWei.String()
		}
		if result.BridgeParams != nil && result.BridgeParams.Amount != nil {
			e.BridgeAmount = result.BridgeParams.Amount.String()
		}
		if result.BridgeQuote != nil && result.BridgeQuote.ExpectedOutputAmount != nil {
			e.ExpectedOutput = result.BridgeQuote.ExpectedOutputAmount.String()
		}
		if result.Submission != nil {
			e.TxHash = result.Submission.TxHash.Hex()
			e.SwapID = result.Submission.SwapID
		}
	}

	if runErr != nil {
		e.Error = runErr.Error()
		var re *orchestrator.RunError
		if errors.As(runErr, &re) {
			e.FailedStage = string(re.Stage)
		}
	}
	return e
}
