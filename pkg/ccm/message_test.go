package ccm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

var recipient = common.HexToAddress("0x67ff09c184d8e9e7B90C5187ED04cbFbDba741C8")

func TestEncodeMessage(t *testing.T) {
	callData := hexutil.MustDecode("0x5ae401dc0000000000000000000000000000000000000000000000000000000065f1c0de")

	msg, err := EncodeMessage(callData, recipient)
	require.NoError(t, err)

	// head (offset, address) + length word + one padded data word
	require.Len(t, msg, 32*2+32+64)
	require.Equal(t, recipient.Bytes(), msg[32+12:64])

	gotCallData, gotRecipient, err := DecodeMessage(msg)
	require.NoError(t, err)
	require.Equal(t, callData, gotCallData)
	require.Equal(t, recipient, gotRecipient)
}

func TestEncodeMessage_EmptyCallData(t *testing.T) {
	_, err := EncodeMessage(nil, recipient)
	require.Error(t, err)
}

func TestEncodeAddress(t *testing.T) {
	word := EncodeAddress(recipient)
	require.Len(t, word, 32)
	require.Equal(t, make([]byte, 12), word[:12])
	require.Equal(t, recipient.Bytes(), word[12:])
}

func TestReceiveCallPack(t *testing.T) {
	msg, err := EncodeMessage([]byte{0xde, 0xad, 0xbe, 0xef}, recipient)
	require.NoError(t, err)

	call := ReceiveCall{
		SrcChain:   4,
		SrcAddress: recipient,
		Message:    msg,
		Token:      common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"),
		Amount:     big.NewInt(1e18),
	}
	data, err := call.Pack()
	require.NoError(t, err)
	require.Equal(t, receiver.Methods["cfReceive"].ID, data[:4])

	args, err := receiver.Methods["cfReceive"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Equal(t, uint32(4), args[0])
	require.Equal(t, EncodeAddress(recipient), args[1])
	require.Equal(t, msg, args[2])
	require.Equal(t, 0, big.NewInt(1e18).Cmp(args[4].(*big.Int)))
}
