package ethereum

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer approves transactions on behalf of one account. A signer that
// declines returns an error wrapping domain.ErrUserRejected.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// KeySigner signs with a local private key.
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySigner parses a hex private key, with or without 0x prefix.
func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid private key: %v", domain.ErrNoSigner, err)
	}
	return NewKeySignerFromKey(key), nil
}

func NewKeySignerFromKey(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *KeySigner) Address() common.Address {
	return s.addr
}

func (s *KeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}
