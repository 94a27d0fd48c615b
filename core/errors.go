package core

import (
	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/grandpa"
)

// Error classes. Concrete errors carry a class through errors.Mark so the
// classification survives wrapping.
var (
	ErrConnection      = errors.New("connection error")
	ErrNotSynced       = errors.New("node is not synced")
	ErrAlreadyIncluded = errors.New("transaction is already included")
	ErrBatchTooLarge   = errors.New("batch exceeds transaction limits")
	ErrProofRejected   = errors.New("proof rejected by the target chain")
	ErrStalled         = errors.New("relay stalled")
	ErrGuardViolation  = errors.New("relay guard violated")
	ErrUnsupported     = errors.New("operation is not supported by the node")
)

// ConnectionError marks err as a transport failure.
func ConnectionError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrConnection)
}

// IsConnectionError reports whether err is a transport failure that can be
// resolved by reconnecting.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsFatal reports whether a relay loop must terminate on err.
func IsFatal(err error) bool {
	return errors.IsAny(err, ErrStalled, ErrGuardViolation, ErrProofRejected) || grandpa.IsInvalidProof(err)
}
