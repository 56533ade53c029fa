package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"flip-bridge/pkg/amount"
	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/metrics"
	"flip-bridge/pkg/orchestrator"
	"flip-bridge/pkg/price"
	"flip-bridge/pkg/signer"
)

var stageLabels = map[orchestrator.State]string{
	orchestrator.StateQuotingSwap:   "Fetching swap quote...",
	orchestrator.StateEstimatingGas: "Estimating destination gas...",
	orchestrator.StateQuotingBridge: "Fetching bridge quote...",
	orchestrator.StateRequotingSwap: "Re-quoting swap with bridge output...",
	orchestrator.StateSubmitting:    "Submitting bridge transaction...",
}

// execute runs one orchestration next to a best-effort USD price lookup
func execute(ctx context.Context, a *app, s signer.Signer, req orchestrator.Request) (*orchestrator.Result, map[string]decimal.Decimal, error) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " Starting..."
	progress := orchestrator.ObserverFunc(func(t orchestrator.Transition) {
		if label, ok := stageLabels[t.To]; ok {
			sp.Lock()
			sp.Suffix = " " + label
			sp.Unlock()
		}
	})

	orch, err := a.orchestrator(ctx, s, progress, metrics.RunObserver())
	if err != nil {
		return nil, nil, err
	}

	if !a.json {
		sp.Start()
	}

	var (
		result *orchestrator.Result
		runErr error
		prices map[string]decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, runErr = orch.Run(gctx, req)
		return nil
	})
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(gctx, a.priceTimeout())
		defer cancel()

		p, err := a.priceFeed().USDPrices(pctx, req.SourceToken.Symbol, req.DestToken.Symbol)
		if err != nil {
			a.logger.WithError(err).Debug("price lookup failed")
			return nil
		}
		prices = p
		return nil
	})
	_ = g.Wait()

	if !a.json {
		sp.Stop()
	}
	return result, prices, runErr
}

func displayResult(result *orchestrator.Result, req orchestrator.Request, prices map[string]decimal.Decimal) {
	title := "SWAP QUOTE"
	if result.Submitted {
		title = "SWAP SUBMITTED"
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                         %s", title)
	fmt.Println(strings.Repeat("=", 70))

	src := req.SourceToken.Symbol
	dst := req.DestToken.Symbol

	fmt.Printf("\n  Run ID:            %s\n", color.HiBlackString(result.RunID))
	fmt.Printf("  Recipient:         %s\n", color.CyanString(req.Recipient.Hex()))
	fmt.Printf("  You Send:          %s %s%s\n", req.Amount, color.YellowString(src), usdSuffix(req.Amount, prices[strings.ToUpper(src)]))

	if result.Gas != nil {
		fmt.Printf("  Gas Budget:        %s ETH (limit %d, max fee %s gwei)\n",
			result.Gas.NativeTokenNeeded.String(),
			result.Gas.GasLimit,
			gwei(result.Gas.Fees.MaxFeePerGas))
	}
	if result.BridgeParams != nil {
		fmt.Printf("  Bridged Amount:    %s ETH\n", amount.Format(result.BridgeParams.Amount, 18))
	}
	if result.BridgeQuote != nil {
		fmt.Printf("  Bridge Output:     %s ETH\n", amount.Format(result.BridgeQuote.ExpectedOutputAmount, 18))
		if result.BridgeQuote.EstimatedDuration > 0 {
			fmt.Printf("  Estimated Time:    %.0f seconds\n", result.BridgeQuote.EstimatedDuration.Seconds())
		}
	}
	if result.NetAmount != "" {
		fmt.Printf("  Swapped Amount:    %s %s\n", result.NetAmount, color.YellowString(src))
	}
	if result.FinalQuote != nil {
		fmt.Printf("  You Receive:       ~%s %s%s\n", result.FinalQuote.QuoteOut, color.YellowString(dst), usdSuffix(result.FinalQuote.QuoteOut, prices[strings.ToUpper(dst)]))
	}
	if result.Submission != nil {
		fmt.Printf("  Tx Hash:           %s\n", color.CyanString(result.Submission.TxHash.Hex()))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func displayRunError(err error) {
	var re *orchestrator.RunError
	if errors.As(err, &re) {
		color.Red("\nRun failed while %s", strings.ReplaceAll(string(re.Stage), "_", " "))
	}
	printError(errors.New(apperrors.UserMessage(err)))
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

func usdSuffix(human string, p decimal.Decimal) string {
	if !p.IsPositive() {
		return ""
	}
	v, err := price.ValueUSD(human, p)
	if err != nil {
		return ""
	}
	return color.HiBlackString(" ($%s)", v.StringFixed(2))
}

func gwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return amount.Format(wei, 9)
}

func getColoredState(state string) string {
	upper := strings.ToUpper(state)

	switch strings.ToLower(state) {
	case "succeeded", "complete", "completed":
		return color.GreenString(upper)
	case "failed", "refunded":
		return color.RedString(upper)
	case "":
		return color.HiBlackString("UNKNOWN")
	default:
		return color.YellowString(upper)
	}
}
