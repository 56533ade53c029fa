package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flip-bridge/pkg/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"runs"},
	Short:   "List past quote and swap runs",
	Long: `List runs recorded in the local run journal, newest first.

Examples:
  flip-bridge history
  flip-bridge history --limit 5`,
	Run: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) {
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

	entries := j.List()
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	if a.json {
		printJSON(entries)
		return
	}
	displayHistory(entries, j.Count())
}

func displayHistory(entries []*journal.Entry, total int) {
	if len(entries) == 0 {
		fmt.Println("\nNo runs recorded yet.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                   RUN HISTORY")
	fmt.Println(strings.Repeat("=", 90))

	for _, e := range entries {
		mode := "swap"
		if e.DryRun {
			mode = "quote"
		}
		fmt.Printf("\n  %s  %s  %-5s  %s %s -> %s %s\n",
			color.HiBlackString(e.CreatedAt.Local().Format("2006-01-02 15:04")),
			color.HiBlackString(e.ID),
			mode,
			e.Amount,
			color.YellowString(e.SourceToken),
			valueOr(e.QuoteOut, "?"),
			color.YellowString(e.DestToken))

		fmt.Printf("      state %s", getColoredState(e.State))
		if e.FailedStage != "" {
			fmt.Printf(" at %s", e.FailedStage)
		}
		if e.BridgeState != "" {
			fmt.Printf(", bridge %s", getColoredState(e.BridgeState))
		}
		fmt.Println()
		if e.TxHash != "" {
			fmt.Printf("      tx %s\n", color.CyanString(e.TxHash))
		}
		if e.Error != "" {
			fmt.Printf("      %s\n", color.RedString(e.Error))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nShowing %d of %d runs\n\n", len(entries), total)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
