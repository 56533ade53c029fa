package config

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/types"
)

// Config holds the application configuration
type Config struct {
	LogLevel         string           `mapstructure:"log_level"`
	LogJSON          bool             `mapstructure:"log_json"`
	JournalPath      string           `mapstructure:"journal_path"`
	ReceiverContract common.Address   `mapstructure:"receiver_contract"`
	QuoteService     QuoteService     `mapstructure:"quote_service"`
	Source           Chain            `mapstructure:"source"`
	Destination      Chain            `mapstructure:"destination"`
	Bridge           Bridge           `mapstructure:"bridge"`
	Gas              Gas              `mapstructure:"gas"`
	Signer           Signer           `mapstructure:"signer"`
	OneClick         OneClick         `mapstructure:"oneclick"`
	Server           Server           `mapstructure:"server"`
	Metrics          Metrics          `mapstructure:"metrics"`
	Tokens           []types.TokenRef `mapstructure:"tokens"`
}

// QuoteService locates the swap quoting backend
type QuoteService struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Chain is an EVM RPC endpoint
type Chain struct {
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID int64  `mapstructure:"chain_id"`
}

// Bridge configures the bridge backend, vaults and route
type Bridge struct {
	BackendURL       string         `mapstructure:"backend_url"`
	SourceVault      common.Address `mapstructure:"source_vault"`
	DestinationVault common.Address `mapstructure:"destination_vault"`
	SourceChain      string         `mapstructure:"source_chain"`
	DestChain        string         `mapstructure:"dest_chain"`
	SourceAsset      string         `mapstructure:"source_asset"`
	DestAsset        string         `mapstructure:"dest_asset"`
	Timeout          time.Duration  `mapstructure:"timeout"`
	PollInterval     time.Duration  `mapstructure:"poll_interval"`
}

// Gas tunes the destination gas budget
type Gas struct {
	FixedOverhead    uint64 `mapstructure:"fixed_overhead"`
	PerByteOverhead  uint64 `mapstructure:"per_byte_overhead"`
	SafetyMultiplier string `mapstructure:"safety_multiplier"`
}

// Signer holds the submitting account's key
type Signer struct {
	PrivateKey string `mapstructure:"private_key"`
}

// OneClick configures the price feed
type OneClick struct {
	BaseURL    string        `mapstructure:"base_url"`
	JWTToken   string        `mapstructure:"jwt_token"`
	Blockchain string        `mapstructure:"blockchain"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Server configures the quoting backend served by `serve`
type Server struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RatePerMinute  int      `mapstructure:"rate_per_minute"`
	SlippageBps    uint32   `mapstructure:"slippage_bps"`
	AggregatorURL  string   `mapstructure:"aggregator_url"`
	AggregatorKey  string   `mapstructure:"aggregator_key"`
	EnableMetrics  bool     `mapstructure:"enable_metrics"`
}

// Metrics configures where CLI run metrics are pushed
type Metrics struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Route is the bridge route resolved to identifiers
type Route struct {
	SourceChain types.Chain
	DestChain   types.Chain
	SourceAsset types.Asset
	DestAsset   types.Asset
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("journal_path", "")
	v.SetDefault("receiver_contract", "0xa8c9718d3a790604311206d1748a1e17334eef8b")

	v.SetDefault("quote_service.url", "http://localhost:3000")
	v.SetDefault("quote_service.timeout", "30s")

	v.SetDefault("source.rpc_url", "https://arb1.arbitrum.io/rpc")
	v.SetDefault("source.chain_id", 42161)
	v.SetDefault("destination.rpc_url", "https://eth.llamarpc.com")
	v.SetDefault("destination.chain_id", 1)

	v.SetDefault("bridge.backend_url", "https://chainflip-swap.chainflip.io")
	v.SetDefault("bridge.source_vault", "0x79001a5e762f3bEFC8e5871b42F6734e00498920")
	v.SetDefault("bridge.destination_vault", "0xF5e10380213880111522dd0efD3dbb45b9f62Bcc")
	v.SetDefault("bridge.source_chain", "Arbitrum")
	v.SetDefault("bridge.dest_chain", "Ethereum")
	v.SetDefault("bridge.source_asset", "ETH")
	v.SetDefault("bridge.dest_asset", "ETH")
	v.SetDefault("bridge.timeout", "30s")
	v.SetDefault("bridge.poll_interval", "3s")

	v.SetDefault("gas.fixed_overhead", 1_200_000)
	v.SetDefault("gas.per_byte_overhead", 17)
	v.SetDefault("gas.safety_multiplier", "1.3")

	v.SetDefault("signer.private_key", "")

	v.SetDefault("oneclick.base_url", "https://1click.chaindefuser.com")
	v.SetDefault("oneclick.jwt_token", "")
	v.SetDefault("oneclick.blockchain", "eth")
	v.SetDefault("oneclick.timeout", "5s")

	v.SetDefault("server.address", "localhost:3000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_per_minute", 120)
	v.SetDefault("server.slippage_bps", 50)
	v.SetDefault("server.aggregator_url", "https://api.1inch.dev/swap/v6.0/1")
	v.SetDefault("server.aggregator_key", "")
	v.SetDefault("server.enable_metrics", true)

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "flip-bridge")
}

// Load reads configuration from environment variables and the optional
// .flip-bridge.yaml in $HOME or the working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".flip-bridge")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile reads configuration from an explicit file plus the environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("FLIP_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(apperrors.ErrInvalidConfig, err.Error())
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks everything every command needs. Submission requirements
// are checked separately by ValidateForSubmission.
func (c *Config) Validate() error {
	if c.QuoteService.URL == "" {
		return errors.Wrap(apperrors.ErrInvalidConfig, "quote_service.url is required")
	}
	if c.Destination.RPCURL == "" {
		return errors.Wrap(apperrors.ErrInvalidConfig, "destination.rpc_url is required")
	}
	if c.Bridge.BackendURL == "" {
		return errors.Wrap(apperrors.ErrInvalidConfig, "bridge.backend_url is required")
	}
	if c.ReceiverContract == (common.Address{}) {
		return errors.Wrap(apperrors.ErrInvalidConfig, "receiver_contract is required")
	}
	if c.Bridge.DestinationVault == (common.Address{}) {
		return errors.Wrap(apperrors.ErrInvalidConfig, "bridge.destination_vault is required")
	}
	if _, err := c.SafetyMultiplier(); err != nil {
		return err
	}
	if _, err := c.Route(); err != nil {
		return err
	}
	return nil
}

// ValidateForSubmission checks what a non dry-run swap additionally needs
func (c *Config) ValidateForSubmission() error {
	if strings.TrimSpace(c.Signer.PrivateKey) == "" {
		return errors.Wrap(apperrors.ErrInvalidConfig,
			"private key not found. Please set FLIP_BRIDGE_SIGNER_PRIVATE_KEY or signer.private_key in .flip-bridge.yaml")
	}
	if c.Source.RPCURL == "" {
		return errors.Wrap(apperrors.ErrInvalidConfig, "source.rpc_url is required")
	}
	if c.Bridge.SourceVault == (common.Address{}) {
		return errors.Wrap(apperrors.ErrInvalidConfig, "bridge.source_vault is required")
	}
	return nil
}

// SafetyMultiplier parses gas.safety_multiplier
func (c *Config) SafetyMultiplier() (decimal.Decimal, error) {
	m, err := decimal.NewFromString(c.Gas.SafetyMultiplier)
	if err != nil || !m.IsPositive() {
		return decimal.Zero, errors.Wrapf(apperrors.ErrInvalidConfig, "invalid gas.safety_multiplier %q", c.Gas.SafetyMultiplier)
	}
	return m, nil
}

// Route resolves the bridge chain and asset names
func (c *Config) Route() (Route, error) {
	srcChain, err := types.ParseChain(c.Bridge.SourceChain)
	if err != nil {
		return Route{}, errors.Wrap(apperrors.ErrInvalidConfig, err.Error())
	}
	dstChain, err := types.ParseChain(c.Bridge.DestChain)
	if err != nil {
		return Route{}, errors.Wrap(apperrors.ErrInvalidConfig, err.Error())
	}
	srcAsset, err := types.ParseAsset(srcChain, c.Bridge.SourceAsset)
	if err != nil {
		return Route{}, errors.Wrap(apperrors.ErrInvalidConfig, err.Error())
	}
	dstAsset, err := types.ParseAsset(dstChain, c.Bridge.DestAsset)
	if err != nil {
		return Route{}, errors.Wrap(apperrors.ErrInvalidConfig, err.Error())
	}
	return Route{
		SourceChain: srcChain,
		DestChain:   dstChain,
		SourceAsset: srcAsset,
		DestAsset:   dstAsset,
	}, nil
}
