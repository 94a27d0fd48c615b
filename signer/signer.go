package signer

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cosmos/go-bip39"
	"github.com/go-playground/validator/v10"

	"github.com/datachainlab/grandpa-relayer/core"
)

// Key types.
const (
	TypeSr25519 = "sr25519"
	TypeEd25519 = "ed25519"
)

// substrate generic address format
const defaultNetwork = 42

var validate = validator.New()

// Config describes the key of a relayer account. Secret is a mnemonic, a
// hex encoded seed or, for sr25519, a secret URI such as "//Alice".
type Config struct {
	Type    string `json:"type" yaml:"type" validate:"required,oneof=sr25519 ed25519"`
	Secret  string `json:"secret" yaml:"secret" validate:"required"`
	Network uint8  `json:"network,omitempty" yaml:"network,omitempty"`
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid signer config")
	}
	if isMnemonic(c.Secret) && !bip39.IsMnemonicValid(c.Secret) {
		return errors.New("invalid signer mnemonic")
	}
	return nil
}

func (c Config) Build() (core.Signer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Type {
	case TypeSr25519:
		network := c.Network
		if network == 0 {
			network = defaultNetwork
		}
		return NewSr25519(c.Secret, network)
	case TypeEd25519:
		if isMnemonic(c.Secret) {
			return NewEd25519FromMnemonic(c.Secret)
		}
		return NewEd25519FromHex(c.Secret)
	}
	return nil, errors.Newf("unsupported key type %s", c.Type)
}

func isMnemonic(secret string) bool {
	return strings.Contains(strings.TrimSpace(secret), " ") && !strings.Contains(secret, "//")
}
