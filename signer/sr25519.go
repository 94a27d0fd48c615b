package signer

import (
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/core"
)

// Sr25519 signs substrate transactions with a schnorrkel key.
type Sr25519 struct {
	pair    signature.KeyringPair
	account core.AccountID
}

var _ core.Signer = (*Sr25519)(nil)

func NewSr25519(secret string, network uint8) (*Sr25519, error) {
	pair, err := signature.KeyringPairFromSecret(secret, network)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive sr25519 key")
	}
	s := &Sr25519{pair: pair}
	copy(s.account[:], pair.PublicKey)
	return s, nil
}

func (s *Sr25519) AccountID() core.AccountID {
	return s.account
}

// Address returns the SS58 address of the account.
func (s *Sr25519) Address() string {
	return s.pair.Address
}

func (s *Sr25519) Sign(payload []byte) ([]byte, error) {
	sig, err := signature.Sign(payload, s.pair.URI)
	if err != nil {
		return nil, errors.Wrap(err, "sr25519 signing failed")
	}
	return sig, nil
}
