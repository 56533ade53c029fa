package types

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// NativeTokenAddress is the placeholder address used for a chain's native asset.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// TokenRef identifies a token on a specific chain. It is a value type and is
// never mutated after construction.
type TokenRef struct {
	Address  common.Address `json:"address" mapstructure:"address"`
	Decimals uint8          `json:"decimals" mapstructure:"decimals"`
	Symbol   string         `json:"symbol" mapstructure:"symbol"`
	ChainID  uint64         `json:"chain_id,omitempty" mapstructure:"chain_id"`
}

// Validate checks the token carries enough information to be quoted
func (t TokenRef) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return errors.New("token symbol is required")
	}
	if t.Decimals > 36 {
		return errors.Errorf("token %s has unsupported decimals %d", t.Symbol, t.Decimals)
	}
	return nil
}

// IsNative reports whether the token is the chain's native asset
func (t TokenRef) IsNative() bool {
	return t.Address == NativeTokenAddress
}

// SameAs reports whether both references point at the same on-chain token
func (t TokenRef) SameAs(other TokenRef) bool {
	return t.ChainID == other.ChainID && t.Address == other.Address
}

func (t TokenRef) String() string {
	return fmt.Sprintf("%s(%s)", t.Symbol, t.Address.Hex())
}

// SwapQuoteRequest is the input of the quoting service
type SwapQuoteRequest struct {
	SourceToken TokenRef
	DestToken   TokenRef
	AmountIn    string // human readable, in SourceToken decimals
	Recipient   common.Address
}

// Validate enforces amountIn > 0 and distinct tokens
func (r SwapQuoteRequest) Validate() error {
	if err := r.SourceToken.Validate(); err != nil {
		return errors.Wrap(err, "source token")
	}
	if err := r.DestToken.Validate(); err != nil {
		return errors.Wrap(err, "destination token")
	}
	if r.SourceToken.SameAs(r.DestToken) {
		return errors.Errorf("source and destination token are both %s", r.SourceToken.Symbol)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.AmountIn))
	if err != nil {
		return errors.Errorf("invalid amount %q", r.AmountIn)
	}
	if !amount.IsPositive() {
		return errors.New("amount must be greater than 0")
	}
	if r.Recipient == (common.Address{}) {
		return errors.New("recipient address is required")
	}
	return nil
}

// SwapQuoteResult is what the quoting service returns. CallData is opaque and
// is only ever passed through.
type SwapQuoteResult struct {
	CallData []byte   `json:"call_data"`
	Value    *big.Int `json:"value"`
	QuoteOut string   `json:"quote_out"`
}

// FeeData holds destination-chain fee components in wei
type FeeData struct {
	MaxFeePerGas *big.Int `json:"max_fee_per_gas"`
	BaseFee      *big.Int `json:"base_fee"`
}

// GasBudget is the native amount reserved to pay for destination execution.
// It is recomputed for every run and never persisted.
type GasBudget struct {
	EstimatedGasUnits uint64          `json:"estimated_gas_units"`
	GasLimit          uint64          `json:"gas_limit"`
	Fees              FeeData         `json:"fees"`
	NativeTokenNeeded decimal.Decimal `json:"native_token_needed"`
	// NativeTokenNeededWei is NativeTokenNeeded in base units. It is the single
	// value used for both the bridge amount and the CCM gas budget.
	NativeTokenNeededWei *big.Int `json:"native_token_needed_wei"`
}

// CCMMetadata is the cross-chain message carried by a bridge swap
type CCMMetadata struct {
	Message   []byte   `json:"message"`
	GasBudget *big.Int `json:"gas_budget"`
}

// BridgeSwapParams describes a bridge swap, for quoting and for execution
type BridgeSwapParams struct {
	SourceChain        Chain          `json:"source_chain"`
	DestChain          Chain          `json:"dest_chain"`
	SourceAsset        Asset          `json:"source_asset"`
	DestAsset          Asset          `json:"dest_asset"`
	Amount             *big.Int       `json:"amount"` // principal + gas budget, source base units
	DestinationAddress common.Address `json:"destination_address"`
	CCM                *CCMMetadata   `json:"ccm,omitempty"`
}

// BridgeFee is one fee line reported by the bridge quote
type BridgeFee struct {
	Type   string   `json:"type"`
	Asset  string   `json:"asset"`
	Amount *big.Int `json:"amount"`
}

// BridgeQuoteResult is the narrowed bridge quote
type BridgeQuoteResult struct {
	ExpectedOutputAmount *big.Int      `json:"expected_output_amount"`
	EstimatedDuration    time.Duration `json:"estimated_duration"`
	IncludedFees         []BridgeFee   `json:"included_fees,omitempty"`
}

// SubmissionResult identifies a submitted bridge swap
type SubmissionResult struct {
	TxHash common.Hash `json:"tx_hash"`
	SwapID string      `json:"swap_id,omitempty"`
}

// SwapStatus is the bridge-side progress of a submitted swap
type SwapStatus struct {
	ID             string    `json:"id"`
	State          string    `json:"state"`
	DepositAmount  string    `json:"deposit_amount,omitempty"`
	EgressAmount   string    `json:"egress_amount,omitempty"`
	DestTxRef      string    `json:"dest_tx_ref,omitempty"`
	CCMMessageSent bool      `json:"ccm_message_sent"`
	UpdatedAt      time.Time `json:"updated_at"`
}
