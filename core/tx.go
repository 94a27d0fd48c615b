package core

import (
	"math/bits"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Signer signs transactions on behalf of the relayer account.
type Signer interface {
	AccountID() AccountID
	Sign(payload []byte) ([]byte, error)
}

// Call is a runtime call with SCALE encoded arguments.
type Call struct {
	Pallet   string
	Function string
	Args     []byte
}

func (c Call) String() string {
	return c.Pallet + "." + c.Function
}

// TransactionBuilder returns the signed transaction to submit given the best
// block of the chain and the next nonce of the signer.
type TransactionBuilder func(best HeaderID, nonce uint32) ([]byte, error)

// TransactionStatus describes a transaction accepted to the pool.
type TransactionStatus struct {
	TxHash Hash
	Nonce  uint32
	Best   HeaderID
}

// Era is the validity period of a transaction.
type Era struct {
	Mortal bool
	Period uint64
	Phase  uint64
	// Birth is the block the era starts at; its hash is part of the signed payload.
	Birth HeaderID
}

const (
	minEraPeriod = 4
	maxEraPeriod = 1 << 16
)

// NewEra returns a mortal era starting at best that stays valid for about
// mortality blocks, or an immortal era if mortality is nil.
func NewEra(best HeaderID, mortality *uint32) Era {
	if mortality == nil {
		return Era{}
	}
	period := uint64(minEraPeriod)
	for period < uint64(*mortality) && period < maxEraPeriod {
		period <<= 1
	}
	quantize := period >> 12
	if quantize == 0 {
		quantize = 1
	}
	phase := uint64(best.Number) % period / quantize * quantize
	return Era{Mortal: true, Period: period, Phase: phase, Birth: best}
}

// Bytes returns the SCALE encoding of the era.
func (e Era) Bytes() []byte {
	if !e.Mortal {
		return []byte{0}
	}
	quantize := e.Period >> 12
	if quantize == 0 {
		quantize = 1
	}
	low := uint64(bits.TrailingZeros64(e.Period)) - 1
	if low < 1 {
		low = 1
	}
	if low > 15 {
		low = 15
	}
	encoded := uint16(low) | uint16((e.Phase/quantize)<<4)
	return []byte{byte(encoded), byte(encoded >> 8)}
}

func (e Era) Encode(enc scale.Encoder) error {
	return enc.Write(e.Bytes())
}

// IsValidAt reports whether a transaction with this era may be included in a
// block with the given number.
func (e Era) IsValidAt(number BlockNumber) bool {
	if !e.Mortal {
		return true
	}
	n := uint64(number)
	birth := (uint64(e.Birth.Number) - uint64(e.Birth.Number)%e.Period) + e.Phase
	if birth > uint64(e.Birth.Number) {
		birth -= e.Period
	}
	return n >= birth && n < birth+e.Period
}
