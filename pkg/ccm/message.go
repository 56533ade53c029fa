package ccm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Receiver entry point called by the bridge vault on the destination chain
const receiverABI = `[{"inputs":[{"internalType":"uint32","name":"srcChain","type":"uint32"},{"internalType":"bytes","name":"srcAddress","type":"bytes"},{"internalType":"bytes","name":"message","type":"bytes"},{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"cfReceive","outputs":[],"stateMutability":"payable","type":"function"}]`

var (
	receiver abi.ABI

	bytesType, _   = abi.NewType("bytes", "", nil)
	addressType, _ = abi.NewType("address", "", nil)

	messageArgs = abi.Arguments{{Type: bytesType}, {Type: addressType}}
	addressArgs = abi.Arguments{{Type: addressType}}
)

func init() {
	var err error
	receiver, err = abi.JSON(strings.NewReader(receiverABI))
	if err != nil {
		panic(err)
	}
}

// EncodeMessage builds the cross-chain message payload: abi.encode(bytes, address).
func EncodeMessage(callData []byte, recipient common.Address) ([]byte, error) {
	if len(callData) == 0 {
		return nil, errors.New("call data is empty")
	}
	msg, err := messageArgs.Pack(callData, recipient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode message")
	}
	return msg, nil
}

// DecodeMessage is the inverse of EncodeMessage
func DecodeMessage(msg []byte) ([]byte, common.Address, error) {
	values, err := messageArgs.Unpack(msg)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "failed to decode message")
	}
	callData, ok := values[0].([]byte)
	if !ok {
		return nil, common.Address{}, errors.New("message call data has unexpected type")
	}
	recipient, ok := values[1].(common.Address)
	if !ok {
		return nil, common.Address{}, errors.New("message recipient has unexpected type")
	}
	return callData, recipient, nil
}

// EncodeAddress left-pads an address into a 32 byte word, the format the
// bridge uses for source and destination addresses.
func EncodeAddress(addr common.Address) []byte {
	out, _ := addressArgs.Pack(addr)
	return out
}

// ReceiveCall holds the arguments of a cfReceive invocation
type ReceiveCall struct {
	SrcChain   uint32
	SrcAddress common.Address
	Message    []byte
	Token      common.Address
	Amount     *big.Int
}

// Pack ABI-encodes the cfReceive call
func (c ReceiveCall) Pack() ([]byte, error) {
	amount := c.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	data, err := receiver.Pack("cfReceive",
		c.SrcChain,
		EncodeAddress(c.SrcAddress),
		c.Message,
		c.Token,
		amount,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack cfReceive")
	}
	return data, nil
}
