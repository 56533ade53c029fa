package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"flip-bridge/pkg/price"
	"flip-bridge/pkg/types"
)

var (
	filterChain  string
	filterSymbol string
	listAll      bool
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List swappable tokens",
	Long: `List the tokens the destination swap can route to, with USD prices from the
1Click API when available. With --all every token known to the price feed is
listed, optionally filtered by blockchain or symbol.

Examples:
  flip-bridge list-tokens
  flip-bridge list-tokens --all --chain eth
  flip-bridge list-tokens --all --symbol USDC`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().BoolVar(&listAll, "all", false, "List every token known to the price feed")
	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by blockchain (with --all)")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol (with --all)")
}

func runListTokens(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	feed := a.priceFeed()
	ctx := context.Background()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !a.json {
		s.Suffix = " Fetching token prices..."
		s.Start()
	}

	if listAll {
		all, err := feed.Tokens(ctx, filterChain, filterSymbol)
		if !a.json {
			s.Stop()
		}
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if a.json {
			printJSON(all)
			return
		}
		displayFeedTokens(all)
		return
	}

	registered := a.registry.List()
	symbols := make([]string, 0, len(registered))
	for _, t := range registered {
		symbols = append(symbols, t.Symbol)
	}
	prices, err := feed.USDPrices(ctx, symbols...)
	if !a.json {
		s.Stop()
	}
	if err != nil {
		a.logger.WithError(err).Warn("prices unavailable")
	}

	if a.json {
		type row struct {
			types.TokenRef
			PriceUSD *decimal.Decimal `json:"price_usd,omitempty"`
		}
		rows := make([]row, 0, len(registered))
		for _, t := range registered {
			r := row{TokenRef: t}
			if p, ok := prices[t.Symbol]; ok {
				r.PriceUSD = &p
			}
			rows = append(rows, r)
		}
		printJSON(rows)
		return
	}
	displayRegistry(registered, prices)
}

func displayRegistry(list []types.TokenRef, prices map[string]decimal.Decimal) {
	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                               SWAPPABLE TOKENS")
	fmt.Println(strings.Repeat("=", 90) + "\n")

	for _, t := range list {
		usd := color.HiBlackString("n/a")
		if p, ok := prices[t.Symbol]; ok {
			usd = "$" + p.String()
		}
		address := t.Address.Hex()
		if t.IsNative() {
			address = "native"
		}
		fmt.Printf("  %-10s  %2d decimals  %-14s  %s\n",
			color.YellowString(t.Symbol),
			t.Decimals,
			usd,
			color.HiBlackString(address))
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(list))
}

func displayFeedTokens(tokens []price.Token) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	// Group tokens by blockchain
	tokensByChain := make(map[string][]price.Token)
	for _, token := range tokens {
		tokensByChain[token.Blockchain] = append(tokensByChain[token.Blockchain], token)
	}

	chains := make([]string, 0, len(tokensByChain))
	for chain := range tokensByChain {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	for _, chain := range chains {
		color.Cyan("\n%s", strings.ToUpper(chain))
		fmt.Println(strings.Repeat("-", 90))

		for _, token := range tokensByChain[chain] {
			address := token.ContractAddress
			if len(address) > 40 {
				address = address[:37] + "..."
			}

			fmt.Printf("  %-10s  %2d decimals  $%-12s  %s\n",
				color.YellowString(token.Symbol),
				token.Decimals,
				token.PriceUSD.String(),
				color.HiBlackString(address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d blockchains\n\n", len(tokens), len(chains))
}
