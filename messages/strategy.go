package messages

import (
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

// Strategy decides how many of the deliverable messages are relayed now.
// It may only shorten the batch, so ordering is never affected.
type Strategy interface {
	// Select returns the length of the prefix of batch to deliver.
	Select(batch []MessageDetails) int
}

// RelayerMode is the mode of MixStrategy.
type RelayerMode string

const (
	// RelayerModeAltruistic delivers every message regardless of its fee.
	RelayerModeAltruistic RelayerMode = "altruistic"
	// RelayerModeRational delivers messages only if their fees cover the
	// delivery cost.
	RelayerModeRational RelayerMode = "rational"
)

func ParseRelayerMode(s string) (RelayerMode, error) {
	switch m := RelayerMode(s); m {
	case RelayerModeAltruistic, RelayerModeRational:
		return m, nil
	case "":
		return RelayerModeAltruistic, nil
	default:
		return "", errors.Newf("unknown relayer mode %q", s)
	}
}

// MixStrategy relays everything in altruistic mode. In rational mode it
// relays the longest prefix whose total fee covers a fixed cost per message
// plus a cost per unit of dispatch weight.
type MixStrategy struct {
	mode           RelayerMode
	costPerMessage *uint256.Int
	costPerWeight  *uint256.Int
}

var _ Strategy = (*MixStrategy)(nil)

func NewAltruisticStrategy() *MixStrategy {
	return &MixStrategy{mode: RelayerModeAltruistic}
}

func NewRationalStrategy(costPerMessage, costPerWeight *uint256.Int) *MixStrategy {
	return &MixStrategy{
		mode:           RelayerModeRational,
		costPerMessage: orZero(costPerMessage),
		costPerWeight:  orZero(costPerWeight),
	}
}

func (s *MixStrategy) Mode() RelayerMode {
	return s.mode
}

func (s *MixStrategy) Select(batch []MessageDetails) int {
	if s.mode != RelayerModeRational {
		return len(batch)
	}
	var (
		fee  = new(uint256.Int)
		cost = new(uint256.Int)
		best int
	)
	for i, d := range batch {
		// fees are u128 so the sum never overflows
		fee.Add(fee, orZero(d.DeliveryAndDispatchFee))
		weightCost, overflow := new(uint256.Int).MulOverflow(s.costPerWeight, uint256.NewInt(d.DispatchWeight))
		if overflow {
			return best
		}
		if _, overflow := cost.AddOverflow(cost, weightCost); overflow {
			return best
		}
		if _, overflow := cost.AddOverflow(cost, s.costPerMessage); overflow {
			return best
		}
		if !fee.Lt(cost) {
			best = i + 1
		}
	}
	return best
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
