package bridge

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/signer"
	"flip-bridge/pkg/types"
)

// SourceBackend is the source-chain RPC surface used to submit vault swaps.
// *ethclient.Client satisfies it.
type SourceBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

const vaultABIJSON = `[{"inputs":[{"internalType":"uint32","name":"dstChain","type":"uint32"},{"internalType":"bytes","name":"dstAddress","type":"bytes"},{"internalType":"uint32","name":"dstToken","type":"uint32"},{"internalType":"bytes","name":"message","type":"bytes"},{"internalType":"uint256","name":"gasAmount","type":"uint256"},{"internalType":"bytes","name":"cfParameters","type":"bytes"}],"name":"xCallNative","outputs":[],"stateMutability":"payable","type":"function"}]`

var vaultABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		panic(err)
	}
	vaultABI = parsed
}

// PackVaultCall builds the xCallNative calldata for a native-asset swap
// carrying a cross-chain message.
func PackVaultCall(params types.BridgeSwapParams) ([]byte, error) {
	if params.CCM == nil {
		return nil, errors.New("vault call requires a cross-chain message")
	}
	return vaultABI.Pack(
		"xCallNative",
		uint32(params.DestChain),
		params.DestinationAddress.Bytes(),
		uint32(params.DestAsset),
		params.CCM.Message,
		params.CCM.GasBudget,
		[]byte{},
	)
}

// ExecuteSwap submits the vault swap signed by s and waits for it to be
// mined. The whole Amount, principal and gas budget, is sent as value.
func (c *Client) ExecuteSwap(ctx context.Context, params types.BridgeSwapParams, s signer.Signer) (*types.SubmissionResult, error) {
	if c.source == nil {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, "source chain RPC not configured")
	}
	if s == nil {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, "signer not configured")
	}
	if err := validateParams(params); err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, err.Error())
	}
	if params.SourceAsset.Symbol() != "ETH" {
		return nil, errors.Wrapf(apperrors.ErrInvalidRequest, "vault swaps from %s are not supported", params.SourceAsset)
	}

	data, err := PackVaultCall(params)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrSubmissionFailed, err.Error())
	}

	from := s.Address()
	log := c.logger.WithFields(logrus.Fields{
		"from":   from.Hex(),
		"vault":  c.config.Vault.Hex(),
		"amount": params.Amount.String(),
	})

	tx, chainID, err := c.buildTx(ctx, from, params.Amount, data)
	if err != nil {
		log.WithError(err).Warn("failed to build vault transaction")
		return nil, errors.Wrap(apperrors.ErrSubmissionFailed, err.Error())
	}

	signed, err := s.SignTx(tx, chainID)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrSubmissionFailed, err.Error())
	}

	if err := c.source.SendTransaction(ctx, signed); err != nil {
		log.WithError(err).Warn("failed to send vault transaction")
		return nil, errors.Wrap(apperrors.ErrSubmissionFailed, "failed to send transaction: "+err.Error())
	}
	log = log.WithField("tx", signed.Hash().Hex())
	log.Info("vault transaction sent")

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrSubmissionFailed, err.Error())
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		log.Warn("vault transaction reverted")
		return nil, errors.Wrapf(apperrors.ErrSubmissionFailed, "transaction %s reverted", signed.Hash().Hex())
	}

	log.WithField("block", receipt.BlockNumber).Info("vault transaction mined")
	return &types.SubmissionResult{
		TxHash: signed.Hash(),
		SwapID: signed.Hash().Hex(),
	}, nil
}

func (c *Client) buildTx(ctx context.Context, from common.Address, value *big.Int, data []byte) (*ethtypes.Transaction, *big.Int, error) {
	chainID, err := c.source.ChainID(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get chain id")
	}

	balance, err := c.source.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get balance")
	}
	if balance.Cmp(value) < 0 {
		return nil, nil, errors.Errorf("insufficient balance: have %s wei, need %s wei", balance, value)
	}

	nonce, err := c.source.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get nonce")
	}

	header, err := c.source.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get latest header")
	}
	if header == nil || header.BaseFee == nil {
		return nil, nil, errors.New("source chain does not report a base fee")
	}
	tip, err := c.source.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get gas tip")
	}
	feeCap := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), tip)

	vault := c.config.Vault
	estimated, err := c.source.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &vault,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "vault call would fail")
	}
	gasLimit := estimated * (100 + c.config.GasBufferPercent) / 100

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &vault,
		Value:     value,
		Data:      data,
	})
	return tx, chainID, nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.source.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.logger.WithError(err).WithField("tx", hash.Hex()).Debug("receipt lookup failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for transaction %s", hash.Hex())
		case <-ticker.C:
		}
	}
}
