package grandpa

import (
	"bytes"
	"crypto/ed25519"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// stage index of a precommit in the GRANDPA Message enum
const messagePrecommit byte = 1

// PrecommitSigningPayload writes the message signed by a voter for precommit
// at the given round and authority set into buf and returns its bytes. buf is
// reset first so that a single buffer can be reused across precommits.
func PrecommitSigningPayload(buf *bytes.Buffer, precommit Precommit, round, setID uint64) []byte {
	buf.Reset()
	enc := scale.NewEncoder(buf)
	// writes into a bytes.Buffer never fail
	_ = enc.PushByte(messagePrecommit)
	_ = enc.Write(precommit.TargetHash[:])
	_ = enc.Encode(precommit.TargetNumber)
	_ = enc.Encode(round)
	_ = enc.Encode(setID)
	return buf.Bytes()
}

// SignPrecommit signs precommit with key. It is used by test voters and the
// in-memory chain.
func SignPrecommit(key ed25519.PrivateKey, precommit Precommit, round, setID uint64) SignedPrecommit {
	var buf bytes.Buffer
	sig := ed25519.Sign(key, PrecommitSigningPayload(&buf, precommit, round, setID))
	signed := SignedPrecommit{Precommit: precommit}
	copy(signed.Signature[:], sig)
	copy(signed.ID[:], key.Public().(ed25519.PublicKey))
	return signed
}

func verifyPrecommitSignature(buf *bytes.Buffer, signed *SignedPrecommit, round, setID uint64) bool {
	payload := PrecommitSigningPayload(buf, signed.Precommit, round, setID)
	return ed25519.Verify(signed.ID[:], payload, signed.Signature[:])
}
