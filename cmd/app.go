package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"flip-bridge/config"
	"flip-bridge/pkg/bridge"
	"flip-bridge/pkg/gas"
	"flip-bridge/pkg/journal"
	"flip-bridge/pkg/logging"
	"flip-bridge/pkg/metrics"
	"flip-bridge/pkg/orchestrator"
	"flip-bridge/pkg/parser"
	"flip-bridge/pkg/price"
	"flip-bridge/pkg/quote"
	"flip-bridge/pkg/signer"
	"flip-bridge/pkg/tokens"
)

// app bundles the configured collaborators shared by the commands
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *tokens.Registry
	verbose  bool
	json     bool

	closers []func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := logging.New(level, cfg.LogJSON)

	registry, err := tokens.NewRegistry(cfg.Tokens...)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		verbose:  verbose,
		json:     jsonOutput,
	}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) dial(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", url)
	}
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *app) bridgeClient(ctx context.Context) (*bridge.Client, error) {
	source, err := a.dial(ctx, a.cfg.Source.RPCURL)
	if err != nil {
		return nil, err
	}
	return bridge.NewClient(a.bridgeConfig(), source, a.logger), nil
}

// statusClient only talks to the bridge backend
func (a *app) statusClient() *bridge.Client {
	return bridge.NewClient(a.bridgeConfig(), nil, a.logger)
}

func (a *app) bridgeConfig() bridge.Config {
	return bridge.Config{
		BackendURL:   a.cfg.Bridge.BackendURL,
		Vault:        a.cfg.Bridge.SourceVault,
		Timeout:      a.cfg.Bridge.Timeout,
		PollInterval: a.cfg.Bridge.PollInterval,
	}
}

// orchestrator wires the quote service, destination estimator and bridge.
// s may be nil for dry runs.
func (a *app) orchestrator(ctx context.Context, s signer.Signer, observers ...orchestrator.Observer) (*orchestrator.Orchestrator, error) {
	route, err := a.cfg.Route()
	if err != nil {
		return nil, err
	}
	multiplier, err := a.cfg.SafetyMultiplier()
	if err != nil {
		return nil, err
	}

	destination, err := a.dial(ctx, a.cfg.Destination.RPCURL)
	if err != nil {
		return nil, err
	}
	estimator := gas.NewEstimator(destination, gas.Config{
		FixedOverhead:    a.cfg.Gas.FixedOverhead,
		PerByteOverhead:  a.cfg.Gas.PerByteOverhead,
		SafetyMultiplier: multiplier,
		SourceChain:      route.SourceChain,
		Vault:            a.cfg.Bridge.DestinationVault,
	}, a.logger)

	bridgeClient, err := a.bridgeClient(ctx)
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(a.logger),
		orchestrator.WithObserver(orchestrator.Observers(observers...)),
	}
	if s != nil {
		opts = append(opts, orchestrator.WithSigner(s))
	}

	return orchestrator.New(
		quote.NewClient(a.cfg.QuoteService.URL, a.cfg.QuoteService.Timeout, a.logger),
		estimator,
		bridgeClient,
		orchestrator.Config{
			SourceChain:    route.SourceChain,
			DestChain:      route.DestChain,
			SourceAsset:    route.SourceAsset,
			DestAsset:      route.DestAsset,
			Receiver:       a.cfg.ReceiverContract,
			NativeDecimals: 18,
		},
		opts...,
	), nil
}

// signer loads the submitting key
func (a *app) signer() (signer.Signer, error) {
	if err := a.cfg.ValidateForSubmission(); err != nil {
		return nil, err
	}
	return signer.FromHex(a.cfg.Signer.PrivateKey)
}

func (a *app) priceFeed() *price.Feed {
	source := price.NewOneClickSource(a.cfg.OneClick.BaseURL, a.cfg.OneClick.JWTToken, a.cfg.OneClick.Timeout)
	return price.NewFeed(source, a.cfg.OneClick.Blockchain, a.logger)
}

// pushMetrics sends this process's run metrics when a Pushgateway is configured
func (a *app) pushMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := metrics.PushRunMetrics(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.WithError(err).Warn("failed to push run metrics")
	}
}

// priceTimeout bounds display-only price lookups
func (a *app) priceTimeout() time.Duration {
	if a.cfg.OneClick.Timeout > 0 {
		return a.cfg.OneClick.Timeout
	}
	return price.DefaultTimeout
}

func (a *app) journal() (*journal.Journal, error) {
	return journal.Open(a.cfg.JournalPath)
}

// parseSwapCommand parses and validates "<amount> <src> to <dst>"
func parseSwapCommand(input string) (*parser.SwapCommand, error) {
	swapReq, err := parser.ParseSwapCommand(input)
	if err != nil {
		return nil, err
	}
	if err := swapReq.Validate(); err != nil {
		return nil, err
	}
	return swapReq, nil
}

// resolveRecipient picks the --recipient flag, falling back to the signer
func resolveRecipient(flag string, s signer.Signer) (common.Address, error) {
	flag = strings.TrimSpace(flag)
	if flag != "" {
		if !common.IsHexAddress(flag) {
			return common.Address{}, errors.Errorf("invalid recipient address: %s", flag)
		}
		return common.HexToAddress(flag), nil
	}
	if s != nil {
		return s.Address(), nil
	}
	return common.Address{}, errors.New("recipient is required, pass --recipient or configure a signer key")
}
