package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flip-bridge/pkg/metrics"
	"flip-bridge/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the swap quoting service",
	Long: `Run the HTTP quoting service the swap and quote commands call for destination
routes. Routes come from a 1inch-compatible aggregator and are built for the
receiver contract, which executes them on the destination chain.

Endpoints:
  GET /{srcAddr}/{srcDecimals}/{srcSymbol}/{dstAddr}/{dstDecimals}/{dstSymbol}/{amount}/{recipient}
  GET /health
  GET /metrics

Examples:
  flip-bridge serve
  flip-bridge serve --addr 0.0.0.0:3000`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.address)")
}

func runServe(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	cfg := server.Config{
		Address:        a.cfg.Server.Address,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RatePerMinute:  a.cfg.Server.RatePerMinute,
		SlippageBps:    a.cfg.Server.SlippageBps,
		EnableMetrics:  a.cfg.Server.EnableMetrics,
	}
	if serveAddr != "" {
		cfg.Address = serveAddr
	}

	if cfg.EnableMetrics {
		metrics.RegisterMetrics([]string{"http"}, a.logger)
	}

	router := server.NewAggregatorRouter(
		a.cfg.Server.AggregatorURL,
		a.cfg.Server.AggregatorKey,
		a.cfg.ReceiverContract,
		a.cfg.QuoteService.Timeout,
	)
	srv := server.New(cfg, router, a.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	color.Green("\nQuoting service listening on %s\n", cfg.Address)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			printError(err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			printError(err)
			os.Exit(1)
		}
	}
}
