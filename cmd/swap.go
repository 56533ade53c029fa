package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flip-bridge/pkg/journal"
	"flip-bridge/pkg/orchestrator"
	"flip-bridge/pkg/parser"
	"flip-bridge/pkg/signer"
	"flip-bridge/pkg/types"
)

var (
	recipientAddr string
	noConfirm     bool
	dryRun        bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Bridge ETH to Ethereum and swap it into a token",
	Long: `Bridge native ETH from Arbitrum to Ethereum and swap it into the destination
token on arrival. The amount is denominated in the source token, which must be
ETH or WETH.

Part of the bridged ETH pays for the destination swap. The swap is quoted,
sized, bridged and re-quoted with what actually arrives before anything is
submitted.

Examples:
  flip-bridge swap 1 WETH to PEPE
  flip-bridge swap 0.5 ETH to USDC --recipient 0x123...
  flip-bridge swap 1 WETH to LINK --dry-run
  flip-bridge swap 1 WETH to DAI --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&recipientAddr, "recipient", "", "Recipient of the destination tokens (defaults to the signer address)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	swapCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Quote everything but do not submit")
}

func runSwap(cmd *cobra.Command, args []string) {
	swapReq, err := parseSwapCommand(strings.Join(args, " "))
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

	var s signer.Signer
	if !dryRun {
		s, err = a.signer()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	recipient, err := resolveRecipient(recipientAddr, s)
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
		Recipient:   recipient,
		DryRun:      true,
	}

	// Preview with a dry run so the user confirms real numbers
	if !dryRun && !noConfirm && !a.json {
		preview, prices, err := execute(ctx, a, nil, req)
		if err != nil {
			displayRunError(err)
			os.Exit(1)
		}
		displayResult(preview, req, prices)

		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			return
		}
	}

	req.DryRun = dryRun
	result, prices, runErr := execute(ctx, a, s, req)
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

	if result.Submitted {
		printSuccess(color.GreenString("Bridge transaction confirmed."))
		fmt.Println("You can monitor the swap status using:")
		color.Cyan("  flip-bridge status %s --watch\n", result.RunID)
	}
}

func lookupPair(a *app, swapReq *parser.SwapCommand) (types.TokenRef, types.TokenRef, error) {
	src, err := a.registry.Lookup(swapReq.SourceToken)
	if err != nil {
		return types.TokenRef{}, types.TokenRef{}, err
	}
	dst, err := a.registry.Lookup(swapReq.DestToken)
	if err != nil {
		return types.TokenRef{}, types.TokenRef{}, err
	}
	return src, dst, nil
}

// recordRun journals a run. Journal failures never fail the command.
func recordRun(a *app, req orchestrator.Request, result *orchestrator.Result, runErr error) {
	if result == nil {
		return
	}
	j, err := a.journal()
	if err != nil {
		a.logger.WithError(err).Warn("failed to open run journal")
		return
	}
	if err := j.Record(journal.FromRun(req, result, runErr)); err != nil {
		a.logger.WithError(err).Warn("failed to record run")
	}
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
