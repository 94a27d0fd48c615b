package messages

import (
	"github.com/cockroachdb/errors"
)

// BatchLimits bound a single delivery transaction and the state the target
// accepts before deliveries are confirmed.
type BatchLimits struct {
	MaxMessages            uint64 `json:"max_messages_in_single_batch" yaml:"max_messages_in_single_batch"`
	MaxWeight              uint64 `json:"max_messages_weight_in_single_batch" yaml:"max_messages_weight_in_single_batch"`
	MaxSize                uint64 `json:"max_messages_size_in_single_batch" yaml:"max_messages_size_in_single_batch"`
	MaxUnrewardedEntries   uint64 `json:"max_unrewarded_relayer_entries_at_target" yaml:"max_unrewarded_relayer_entries_at_target"`
	MaxUnconfirmedAtTarget uint64 `json:"max_unconfirmed_nonces_at_target" yaml:"max_unconfirmed_nonces_at_target"`
}

func (l BatchLimits) Validate() error {
	switch {
	case l.MaxMessages == 0:
		return errors.New("max_messages_in_single_batch must be positive")
	case l.MaxWeight == 0:
		return errors.New("max_messages_weight_in_single_batch must be positive")
	case l.MaxSize == 0:
		return errors.New("max_messages_size_in_single_batch must be positive")
	case l.MaxUnrewardedEntries == 0:
		return errors.New("max_unrewarded_relayer_entries_at_target must be positive")
	case l.MaxUnconfirmedAtTarget == 0:
		return errors.New("max_unconfirmed_nonces_at_target must be positive")
	}
	return nil
}

// NearLimit reports whether the target is about to refuse deliveries until
// the source confirms some of them.
func (l BatchLimits) NearLimit(relayers UnrewardedRelayersState) bool {
	return relayers.UnrewardedRelayerEntries+1 >= l.MaxUnrewardedEntries ||
		relayers.TotalMessages+1 >= l.MaxUnconfirmedAtTarget
}

// SelectBatch returns the length of the longest prefix of details that fits
// the limits. The first message is admitted alone even if it exceeds the
// weight or size limit, otherwise the lane would be blocked forever.
func SelectBatch(details []MessageDetails, limits BatchLimits, relayers UnrewardedRelayersState) int {
	if relayers.UnrewardedRelayerEntries >= limits.MaxUnrewardedEntries {
		return 0
	}
	if relayers.TotalMessages >= limits.MaxUnconfirmedAtTarget {
		return 0
	}
	count := min(limits.MaxMessages, limits.MaxUnconfirmedAtTarget-relayers.TotalMessages)

	var weight, size uint64
	for i, d := range details {
		if uint64(i) >= count {
			return i
		}
		weight += d.DispatchWeight
		size += uint64(d.Size)
		if weight > limits.MaxWeight || size > limits.MaxSize {
			return max(i, 1)
		}
	}
	return len(details)
}

// TotalDispatchWeight returns the dispatch weight of all messages in details.
func TotalDispatchWeight(details []MessageDetails) uint64 {
	var w uint64
	for _, d := range details {
		w += d.DispatchWeight
	}
	return w
}
