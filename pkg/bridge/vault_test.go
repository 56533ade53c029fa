package bridge

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/signer"
)

const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var sourceVault = common.HexToAddress("0x79001a5e762f3bEFC8e5871b42F6734e00498920")

type fakeSource struct {
	balance     *big.Int
	estimateErr error
	receipt     *ethtypes.Receipt
	pending     int
	header      *ethtypes.Header
	noHeader    bool

	sent     *ethtypes.Transaction
	estimate ethereum.CallMsg
}

func (f *fakeSource) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(42161), nil
}

func (f *fakeSource) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeSource) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeSource) HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
	if f.noHeader {
		return nil, nil
	}
	if f.header != nil {
		return f.header, nil
	}
	return &ethtypes.Header{BaseFee: big.NewInt(10_000_000)}, nil
}

func (f *fakeSource) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (f *fakeSource) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.estimate = msg
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 100_000, nil
}

func (f *fakeSource) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	f.sent = tx
	return nil
}

func (f *fakeSource) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	if f.pending > 0 {
		f.pending--
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func newVaultClient(t *testing.T, source *fakeSource) *Client {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewClient(Config{
		BackendURL:   "http://bridge.invalid",
		Vault:        sourceVault,
		PollInterval: time.Millisecond,
	}, source, logger)
}

func TestExecuteSwap(t *testing.T) {
	source := &fakeSource{
		balance: big.NewInt(2_000_000_000_000_000_000),
		receipt: &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(9)},
		pending: 2,
	}
	client := newVaultClient(t, source)
	s, err := signer.FromHex(devKey)
	require.NoError(t, err)

	params := testParams()
	result, err := client.ExecuteSwap(context.Background(), params, s)
	require.NoError(t, err)

	require.NotNil(t, source.sent)
	assert.Equal(t, source.sent.Hash(), result.TxHash)
	assert.Equal(t, result.TxHash.Hex(), result.SwapID)

	tx := source.sent
	assert.Equal(t, uint8(ethtypes.DynamicFeeTxType), tx.Type())
	assert.Equal(t, sourceVault, *tx.To())
	assert.Equal(t, params.Amount.String(), tx.Value().String())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.Equal(t, int64(21_000_000), tx.GasFeeCap().Int64())

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(42161)), tx)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), sender)

	method, err := vaultABI.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	assert.Equal(t, "xCallNative", method.Name)

	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), args[0])
	assert.Equal(t, receiver.Bytes(), args[1])
	assert.Equal(t, uint32(1), args[2])
	assert.Equal(t, params.CCM.Message, args[3])
	assert.Equal(t, params.CCM.GasBudget.String(), args[4].(*big.Int).String())
}

func TestExecuteSwap_Reverted(t *testing.T) {
	source := &fakeSource{
		balance: big.NewInt(2_000_000_000_000_000_000),
		receipt: &ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed},
	}
	client := newVaultClient(t, source)
	s, err := signer.FromHex(devKey)
	require.NoError(t, err)

	_, err = client.ExecuteSwap(context.Background(), testParams(), s)
	require.True(t, errors.Is(err, apperrors.ErrSubmissionFailed))
}

func TestExecuteSwap_FailsBeforeSending(t *testing.T) {
	s, err := signer.FromHex(devKey)
	require.NoError(t, err)

	t.Run("insufficient balance", func(t *testing.T) {
		source := &fakeSource{balance: big.NewInt(1)}
		_, err := newVaultClient(t, source).ExecuteSwap(context.Background(), testParams(), s)
		require.True(t, errors.Is(err, apperrors.ErrSubmissionFailed))
		assert.Nil(t, source.sent)
	})

	t.Run("estimate reverts", func(t *testing.T) {
		source := &fakeSource{
			balance:     big.NewInt(2_000_000_000_000_000_000),
			estimateErr: errors.New("execution reverted"),
		}
		_, err := newVaultClient(t, source).ExecuteSwap(context.Background(), testParams(), s)
		require.True(t, errors.Is(err, apperrors.ErrSubmissionFailed))
		assert.Nil(t, source.sent)
	})

	t.Run("no latest header", func(t *testing.T) {
		source := &fakeSource{
			balance:  big.NewInt(2_000_000_000_000_000_000),
			noHeader: true,
		}
		_, err := newVaultClient(t, source).ExecuteSwap(context.Background(), testParams(), s)
		require.True(t, errors.Is(err, apperrors.ErrSubmissionFailed))
		assert.Nil(t, source.sent)
	})

	t.Run("no base fee", func(t *testing.T) {
		source := &fakeSource{
			balance: big.NewInt(2_000_000_000_000_000_000),
			header:  &ethtypes.Header{},
		}
		_, err := newVaultClient(t, source).ExecuteSwap(context.Background(), testParams(), s)
		require.True(t, errors.Is(err, apperrors.ErrSubmissionFailed))
		assert.Nil(t, source.sent)
	})

	t.Run("missing message", func(t *testing.T) {
		source := &fakeSource{balance: big.NewInt(2_000_000_000_000_000_000)}
		params := testParams()
		params.CCM = nil
		_, err := newVaultClient(t, source).ExecuteSwap(context.Background(), params, s)
		require.Error(t, err)
		assert.Nil(t, source.sent)
	})
}

func TestExecuteSwap_ContextCancelledWhileWaiting(t *testing.T) {
	source := &fakeSource{
		balance: big.NewInt(2_000_000_000_000_000_000),
		pending: 1 << 30,
	}
	client := newVaultClient(t, source)
	s, err := signer.FromHex(devKey)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.ExecuteSwap(ctx, testParams(), s)
	require.True(t, errors.Is(err, apperrors.ErrSubmissionFailed))
	require.NotNil(t, source.sent)
}
