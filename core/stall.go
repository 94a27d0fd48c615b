package core

import "time"

const (
	// DefaultStallTimeout is used when transactions are immortal.
	DefaultStallTimeout = 30 * time.Minute
	// MinStallTimeout is the lower bound of every stall timeout.
	MinStallTimeout = time.Minute
)

// TransactionStallTimeout returns the time after which a submitted
// transaction that has not been included is considered lost. A mortal
// transaction dies after its mortality period; two blocks are added to cover
// the time it spends in the pool.
func TransactionStallTimeout(mortality *uint32, blockInterval, defaultTimeout time.Duration) time.Duration {
	timeout := defaultTimeout
	if mortality != nil {
		timeout = blockInterval * time.Duration(uint64(*mortality)+2)
	}
	if timeout < MinStallTimeout {
		return MinStallTimeout
	}
	return timeout
}

// BidirectionalTransactionStallTimeout returns the stall timeout of a loop
// submitting transactions to both chains.
func BidirectionalTransactionStallTimeout(
	sourceMortality *uint32,
	targetMortality *uint32,
	sourceBlockInterval time.Duration,
	targetBlockInterval time.Duration,
	defaultTimeout time.Duration,
) time.Duration {
	return max(
		TransactionStallTimeout(sourceMortality, sourceBlockInterval, defaultTimeout),
		TransactionStallTimeout(targetMortality, targetBlockInterval, defaultTimeout),
	)
}
