package signer

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cosmos/go-bip39"

	"github.com/datachainlab/grandpa-relayer/core"
)

// Ed25519 signs with an ed25519 key. Its account id is the public key.
type Ed25519 struct {
	key ed25519.PrivateKey
}

var _ core.Signer = (*Ed25519)(nil)

func NewEd25519(seed []byte) (*Ed25519, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Newf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func NewEd25519FromHex(s string) (*Ed25519, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid ed25519 seed")
	}
	return NewEd25519(seed)
}

// NewEd25519FromMnemonic derives the key from the first bytes of the BIP39
// seed of mnemonic.
func NewEd25519FromMnemonic(mnemonic string) (*Ed25519, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	return NewEd25519(seed[:ed25519.SeedSize])
}

func (s *Ed25519) AccountID() core.AccountID {
	var id core.AccountID
	copy(id[:], s.key.Public().(ed25519.PublicKey))
	return id
}

func (s *Ed25519) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.key, payload), nil
}
