package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flip-bridge/pkg/amount"
	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/metrics"
	"flip-bridge/pkg/orchestrator"
)

var (
	quoteRecipient string
	interactive    bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Quote a bridge and swap without submitting",
	Long: `Run the full quoting pipeline as a dry run: swap quote, destination gas
estimate, bridge quote and a re-quote with the bridged amount.

With --interactive the token pair is fixed and amounts are read from stdin,
one per line. Each new amount supersedes the quote still in flight.

Examples:
  flip-bridge quote 1 WETH to PEPE --recipient 0x123...
  flip-bridge quote WETH to PEPE --recipient 0x123... --interactive`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteRecipient, "recipient", "", "Recipient of the destination tokens (defaults to the signer address)")
	quoteCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Read amounts from stdin and re-quote on every change")
}

func runQuote(cmd *cobra.Command, args []string) {
	commandStr := strings.Join(args, " ")
	if interactive {
		// amount is typed later
		commandStr = "1 " + commandStr
	}
	swapReq, err := parseSwapCommand(commandStr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	src, dst, err := lookupPair(a, swapReq)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	recipient := quoteRecipient
	if recipient == "" && a.cfg.Signer.PrivateKey != "" {
		if s, err := a.signer(); err == nil {
			recipient = s.Address().Hex()
		}
	}
	to, err := resolveRecipient(recipient, nil)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := orchestrator.Request{
		SourceToken: src,
		DestToken:   dst,
		Amount:      swapReq.Amount,
		Recipient:   to,
		DryRun:      true,
	}

	if interactive {
		runInteractive(ctx, a, req)
		return
	}

	result, prices, runErr := execute(ctx, a, nil, req)
	recordRun(a, req, result, runErr)
	a.pushMetrics()

	if a.json {
		output := map[string]interface{}{"result": result}
		if runErr != nil {
			output["error"] = runErr.Error()
		}
		printJSON(output)
		if runErr != nil {
			os.Exit(1)
		}
		return
	}
	if runErr != nil {
		displayRunError(runErr)
		os.Exit(1)
	}
	displayResult(result, req, prices)
}

// runInteractive quotes every amount read from stdin. Only the run started
// for the latest amount may display its result.
func runInteractive(ctx context.Context, a *app, base orchestrator.Request) {
	orch, err := a.orchestrator(ctx, nil, metrics.RunObserver())
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	session := orchestrator.NewSession()
	var (
		wg  sync.WaitGroup
		out sync.Mutex
	)

	color.Cyan("\nQuoting %s to %s for %s", base.SourceToken.Symbol, base.DestToken.Symbol, base.Recipient.Hex())
	fmt.Println("Enter an amount per line. Press Ctrl+D to stop.")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := amount.ParsePositive(line); err != nil {
			color.Red("Invalid amount: %v", err)
			continue
		}

		req := base
		req.Amount = line
		runID := session.Begin(line)

		wg.Add(1)
		go func(req orchestrator.Request, runID string) {
			defer wg.Done()
			result, runErr := orch.Run(ctx, req)
			err := session.Commit(runID, func() {
				out.Lock()
				defer out.Unlock()
				printQuoteLine(req, result, runErr)
			})
			if orchestrator.IsStale(err) {
				a.logger.WithField("amount", req.Amount).Debug("discarding superseded quote")
			}
		}(req, runID)
	}
	wg.Wait()
	a.pushMetrics()

	if err := scanner.Err(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printQuoteLine(req orchestrator.Request, result *orchestrator.Result, runErr error) {
	if runErr != nil {
		color.Red("  %s %s: %s", req.Amount, req.SourceToken.Symbol, apperrors.UserMessage(runErr))
		return
	}
	fmt.Printf("  %s %s -> ~%s %s (gas budget %s ETH)\n",
		req.Amount,
		color.YellowString(req.SourceToken.Symbol),
		result.FinalQuote.QuoteOut,
		color.YellowString(req.DestToken.Symbol),
		gasBudget(result))
}

func gasBudget(result *orchestrator.Result) string {
	if result.Gas == nil {
		return "0"
	}
	return result.Gas.NativeTokenNeeded.String()
}
