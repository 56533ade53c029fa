package gas

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/ccm"
	"flip-bridge/pkg/types"
)

const (
	// DefaultFixedOverhead covers the relayer's message handling on the destination chain.
	DefaultFixedOverhead uint64 = 1_200_000
	// DefaultPerByteOverhead is charged for every byte of the cross-chain message.
	DefaultPerByteOverhead uint64 = 17
)

// DefaultSafetyMultiplier absorbs variance between estimate and execution.
var DefaultSafetyMultiplier = decimal.RequireFromString("1.3")

// Provider is the read-only destination-chain RPC surface the estimator
// needs. *ethclient.Client satisfies it.
type Provider interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

// Config tunes the gas budget computation
type Config struct {
	FixedOverhead    uint64
	PerByteOverhead  uint64
	SafetyMultiplier decimal.Decimal
	// SourceChain is the bridge chain id reported to the receiver as srcChain.
	SourceChain types.Chain
	// Vault is the destination bridge vault, the only account allowed to call
	// the receiver. Estimates are simulated from it.
	Vault common.Address
	// Token is the asset delivered with the message; the native placeholder by default.
	Token common.Address
}

// Estimator sizes the destination gas budget for a bridged swap
type Estimator struct {
	provider Provider
	config   Config
	logger   *logrus.Logger
}

// NewEstimator creates a new estimator, filling unset tuning values with defaults
func NewEstimator(provider Provider, cfg Config, logger *logrus.Logger) *Estimator {
	if cfg.FixedOverhead == 0 {
		cfg.FixedOverhead = DefaultFixedOverhead
	}
	if cfg.PerByteOverhead == 0 {
		cfg.PerByteOverhead = DefaultPerByteOverhead
	}
	if !cfg.SafetyMultiplier.IsPositive() {
		cfg.SafetyMultiplier = DefaultSafetyMultiplier
	}
	if cfg.Token == (common.Address{}) {
		cfg.Token = types.NativeTokenAddress
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Estimator{
		provider: provider,
		config:   cfg,
		logger:   logger,
	}
}

// EstimateDestinationGas simulates the receiver call that the bridge will make
// on the destination chain and turns the result into a native-token budget.
func (e *Estimator) EstimateDestinationGas(
	ctx context.Context,
	callData []byte,
	recipientOnSource common.Address,
	destinationContract common.Address,
	principal *big.Int,
) (*types.GasBudget, error) {
	if principal == nil || principal.Sign() <= 0 {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, "principal must be positive")
	}

	message, err := ccm.EncodeMessage(callData, recipientOnSource)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrGasEstimationFailed, err.Error())
	}

	data, err := ccm.ReceiveCall{
		SrcChain:   uint32(e.config.SourceChain),
		SrcAddress: recipientOnSource,
		Message:    message,
		Token:      e.config.Token,
		Amount:     principal,
	}.Pack()
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrGasEstimationFailed, err.Error())
	}

	log := e.logger.WithFields(logrus.Fields{
		"contract":      destinationContract.Hex(),
		"message_bytes": len(message),
	})

	estimated, err := e.provider.EstimateGas(ctx, ethereum.CallMsg{
		From:  e.config.Vault,
		To:    &destinationContract,
		Value: principal,
		Data:  data,
	})
	if err != nil {
		log.WithError(err).Warn("destination gas estimation failed")
		return nil, errors.Wrap(apperrors.ErrGasEstimationFailed, err.Error())
	}
	if estimated == 0 {
		return nil, errors.Wrap(apperrors.ErrGasEstimationFailed, "provider returned a zero estimate")
	}

	fees, err := e.feeData(ctx)
	if err != nil {
		log.WithError(err).Warn("destination fee data unavailable")
		return nil, err
	}

	gasLimit := e.GasLimit(estimated, len(message))
	native, wei, err := NativeTokenNeeded(gasLimit, fees)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"estimated":  estimated,
		"gas_limit":  gasLimit,
		"native_wei": wei.String(),
	}).Debug("destination gas budget computed")

	return &types.GasBudget{
		EstimatedGasUnits:    estimated,
		GasLimit:             gasLimit,
		Fees:                 fees,
		NativeTokenNeeded:    native,
		NativeTokenNeededWei: wei,
	}, nil
}

// GasLimit applies relay overheads and the safety multiplier, rounding up
func (e *Estimator) GasLimit(estimated uint64, messageBytes int) uint64 {
	units := new(big.Int).SetUint64(estimated)
	units.Add(units, new(big.Int).SetUint64(e.config.FixedOverhead))
	units.Add(units, new(big.Int).Mul(
		new(big.Int).SetUint64(e.config.PerByteOverhead),
		big.NewInt(int64(messageBytes)),
	))

	limit := decimal.NewFromBigInt(units, 0).Mul(e.config.SafetyMultiplier).Ceil()
	return limit.BigInt().Uint64()
}

// NativeTokenNeeded converts a gas limit into native token units:
// gasLimit * (maxFeePerGas + baseFee) / 1e9, with fees taken in gwei. The
// second value is the same amount in wei, floored. Missing fee components
// return ErrGasPriceUnavailable.
func NativeTokenNeeded(gasLimit uint64, fees types.FeeData) (decimal.Decimal, *big.Int, error) {
	if fees.MaxFeePerGas == nil || fees.BaseFee == nil {
		return decimal.Zero, nil, errors.Wrap(apperrors.ErrGasPriceUnavailable, "fee data is incomplete")
	}
	perGasWei := new(big.Int).Add(fees.MaxFeePerGas, fees.BaseFee)
	perGasGwei := decimal.NewFromBigInt(perGasWei, -9)

	native := decimal.NewFromBigInt(new(big.Int).SetUint64(gasLimit), 0).
		Mul(perGasGwei).
		Shift(-9)

	wei := native.Shift(18).Truncate(0).BigInt()
	return native, wei, nil
}

// feeData reads both fee components. Missing data fails closed, never zero.
func (e *Estimator) feeData(ctx context.Context) (types.FeeData, error) {
	header, err := e.provider.HeaderByNumber(ctx, nil)
	if err != nil {
		return types.FeeData{}, errors.Wrap(apperrors.ErrGasPriceUnavailable, "failed to get latest header: "+err.Error())
	}
	if header == nil || header.BaseFee == nil || header.BaseFee.Sign() <= 0 {
		return types.FeeData{}, errors.Wrap(apperrors.ErrGasPriceUnavailable, "base fee is nil")
	}
	baseFee := new(big.Int).Set(header.BaseFee)

	tip, err := e.provider.SuggestGasTipCap(ctx)
	if err != nil {
		return types.FeeData{}, errors.Wrap(apperrors.ErrGasPriceUnavailable, "failed to get suggested gas tip: "+err.Error())
	}
	if tip == nil {
		return types.FeeData{}, errors.Wrap(apperrors.ErrGasPriceUnavailable, "suggested gas tip is nil")
	}

	maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)

	return types.FeeData{
		MaxFeePerGas: maxFee,
		BaseFee:      baseFee,
	}, nil
}
