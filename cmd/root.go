package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flip-bridge",
	Short: "Bridge ETH from Arbitrum and swap it on Ethereum in one step",
	Long: `flip-bridge bridges native ETH from Arbitrum to Ethereum and swaps it into
any listed token on arrival. The destination swap runs inside a receiver
contract, funded by a gas budget that travels with the bridged amount.

Examples:
  flip-bridge quote 1 WETH to PEPE --recipient 0x123...
  flip-bridge swap 1 WETH to PEPE
  flip-bridge status <run-id|swap-id|tx-hash> --watch
  flip-bridge history
  flip-bridge list-tokens
  flip-bridge serve`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
