package grandpa

import (
	"encoding/hex"
	"fmt"

	"github.com/cockroachdb/errors"
)

// BlockNumber is the number of a block on a GRANDPA chain.
type BlockNumber = uint32

// Hash is a blake2b-256 digest.
type Hash [32]byte

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromHex parses a 0x-prefixed or bare hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	bz, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrapf(err, "invalid hash %q", s)
	}
	if len(bz) != len(h) {
		return h, errors.Newf("invalid hash length: %d", len(bz))
	}
	copy(h[:], bz)
	return h, nil
}

// HeaderID identifies a header on a single chain.
type HeaderID struct {
	Number BlockNumber `json:"number" yaml:"number"`
	Hash   Hash        `json:"hash" yaml:"hash"`
}

func (id HeaderID) String() string {
	return fmt.Sprintf("%d(%s)", id.Number, id.Hash)
}

// AuthorityID is the ed25519 public key of a GRANDPA voter.
type AuthorityID [32]byte

func (id AuthorityID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Signature is an ed25519 signature.
type Signature [64]byte

// Precommit is a vote for a block and all of its ancestors.
type Precommit struct {
	TargetHash   Hash
	TargetNumber BlockNumber
}

// SignedPrecommit is a precommit together with the voter and its signature.
type SignedPrecommit struct {
	Precommit Precommit
	Signature Signature
	ID        AuthorityID
}

// Commit is a set of precommits that justify finality of TargetHash.
type Commit struct {
	TargetHash   Hash
	TargetNumber BlockNumber
	Precommits   []SignedPrecommit
}

// Justification is a GRANDPA finality proof.
//
// VotesAncestries contains the headers between the commit target and the
// precommit targets that the verifier cannot otherwise know about.
type Justification struct {
	Round           uint64
	Commit          Commit
	VotesAncestries []Header
}

// Target returns the id of the header finalized by the justification.
func (j *Justification) Target() HeaderID {
	return HeaderID{Number: j.Commit.TargetNumber, Hash: j.Commit.TargetHash}
}
