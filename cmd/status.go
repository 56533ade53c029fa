package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/bridge"
	"flip-bridge/pkg/journal"
	"flip-bridge/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id|swap-id|tx-hash>",
	Short: "Check the bridge status of a submitted swap",
	Long: `Check the bridge-side progress of a submitted swap. The argument may be a run
id from 'flip-bridge history', the bridge swap id or the source transaction
hash. The latest state is saved to the run journal.

Examples:
  flip-bridge status 0x1234...abcd
  flip-bridge status 6f1c... --watch
  flip-bridge status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until the swap completes")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	j, err := a.journal()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	swapID, entry := resolveSwapID(j, args[0])
	client := a.statusClient()

	if watchStatus {
		if a.json {
			fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
			os.Exit(1)
		}
		watchSwapStatus(client, j, entry, swapID)
		return
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !a.json {
		s.Suffix = " Checking swap status..."
		s.Start()
	}

	status, err := client.SwapStatus(context.Background(), swapID)
	if !a.json {
		s.Stop()
	}
	if err != nil {
		printError(statusError(err))
		os.Exit(1)
	}
	saveBridgeState(a, j, entry, status)

	if a.json {
		printJSON(status)
		return
	}
	displayStatus(status, entry)
}

// resolveSwapID maps a run id or tx hash to the bridge swap id via the journal
func resolveSwapID(j *journal.Journal, id string) (string, *journal.Entry) {
	entry, err := j.Get(id)
	if err != nil {
		return id, nil
	}
	if entry.SwapID != "" {
		return entry.SwapID, entry
	}
	if entry.TxHash != "" {
		return entry.TxHash, entry
	}
	return id, entry
}

func watchSwapStatus(client *bridge.Client, j *journal.Journal, entry *journal.Entry, swapID string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("\nWatching swap status (Swap ID: %s)\n", color.CyanString(swapID))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	for {
		status, err := client.SwapStatus(ctx, swapID)
		if err != nil {
			color.Red("Error: %v", statusError(err))
		} else {
			if entry != nil {
				if err := j.SetBridgeState(entry.ID, status.State); err != nil {
					color.Red("Error: %v", err)
				}
			}
			displayStatus(status, entry)
			if bridge.IsTerminal(status.State) {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func saveBridgeState(a *app, j *journal.Journal, entry *journal.Entry, status *types.SwapStatus) {
	if entry == nil {
		return
	}
	if err := j.SetBridgeState(entry.ID, status.State); err != nil {
		a.logger.WithError(err).Warn("failed to update run journal")
	}
}

func statusError(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%v. The bridge may not have witnessed the deposit yet", err)
	}
	return err
}

func displayStatus(status *types.SwapStatus, entry *journal.Entry) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Swap ID:         %s\n", color.CyanString(status.ID))
	if entry != nil {
		fmt.Printf("  Run ID:          %s\n", color.HiBlackString(entry.ID))
		fmt.Printf("  Swap:            %s %s -> %s\n", entry.Amount, entry.SourceToken, entry.DestToken)
	}
	fmt.Printf("  Status:          %s\n", getColoredState(status.State))
	if !status.UpdatedAt.IsZero() {
		fmt.Printf("  Last Updated:    %s\n", status.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if status.DepositAmount != "" {
		fmt.Printf("  Deposited:       %s\n", status.DepositAmount)
	}
	if status.EgressAmount != "" {
		fmt.Printf("  Delivered:       %s\n", status.EgressAmount)
	}
	if status.DestTxRef != "" {
		fmt.Printf("  Destination Tx:  %s\n", color.HiBlackString(status.DestTxRef))
	}
	fmt.Printf("  Message Sent:    %t\n", status.CCMMessageSent)

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
