package signer

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Signer signs source-chain transactions at submission time
type Signer interface {
	// Address returns the account that pays for and sends the bridge swap.
	Address() common.Address
	// SignTx signs tx for the given chain id.
	SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error)
}

// keySigner signs with an in-memory ECDSA key
type keySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a signer for privateKey
func NewSigner(privateKey *ecdsa.PrivateKey) (Signer, error) {
	if privateKey == nil {
		return nil, errors.New("private key is nil")
	}
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("cannot assign public key to ECDSA")
	}
	return &keySigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey),
	}, nil
}

// FromHex parses a hex private key, with or without 0x prefix
func FromHex(key string) (Signer, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("private key not configured")
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return NewSigner(privateKey)
}

func (s *keySigner) Address() common.Address {
	return s.address
}

func (s *keySigner) SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), s.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	return signed, nil
}
