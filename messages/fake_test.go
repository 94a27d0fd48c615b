package messages

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"

	"github.com/datachainlab/grandpa-relayer/core"
)

// fakeLane is an in-memory lane whose source and target ends apply submitted
// transactions immediately.
type fakeLane struct {
	mu sync.Mutex

	generated Nonce
	weight    uint64
	fee       uint64
	// received is the latest nonce received by the target
	received Nonce
	// confirmed is the latest nonce confirmed at the source
	confirmed Nonce
	relayers  UnrewardedRelayersState

	// refuse is called before a delivery is applied, a non-nil result
	// rejects the whole batch
	refuse func(nonces NonceRange) error
	// lagConfirmations keeps confirmations from taking effect
	lagConfirmations bool
	failState        error

	events     []string
	deliveries []NonceRange
	reconnects int
}

func newFakeLane(generated Nonce) *fakeLane {
	return &fakeLane{generated: generated, weight: 1, fee: 10}
}

func (f *fakeLane) source() *fakeSource { return &fakeSource{f} }
func (f *fakeLane) target() *fakeTarget { return &fakeTarget{f} }

func (f *fakeLane) state() (core.ClientState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failState; err != nil {
		f.failState = nil
		return core.ClientState{}, err
	}
	return core.ClientState{
		BestSelf:                    core.HeaderID{Number: 100},
		BestFinalizedSelf:           core.HeaderID{Number: 99},
		BestFinalizedPeerAtBestSelf: core.HeaderID{Number: 50},
	}, nil
}

type fakeSource struct{ *fakeLane }

var _ SourceClient = (*fakeSource)(nil)

func (s *fakeSource) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *fakeSource) State(context.Context) (core.ClientState, error) {
	return s.state()
}

func (s *fakeSource) LatestGeneratedNonce(context.Context, core.HeaderID) (Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generated, nil
}

func (s *fakeSource) LatestConfirmedNonce(context.Context, core.HeaderID) (Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed, nil
}

func (s *fakeSource) GeneratedMessageDetails(_ context.Context, _ core.HeaderID, nonces NonceRange) ([]MessageDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var details []MessageDetails
	for n := nonces.Begin; n <= nonces.End && n <= s.generated; n++ {
		details = append(details, MessageDetails{
			Nonce:                  n,
			DispatchWeight:         s.weight,
			Size:                   100,
			DeliveryAndDispatchFee: uint256.NewInt(s.fee),
		})
	}
	return details, nil
}

func (s *fakeSource) ProveMessages(_ context.Context, at core.HeaderID, nonces NonceRange) (*MessagesProof, error) {
	return &MessagesProof{BridgedHeaderHash: at.Hash, NoncesStart: nonces.Begin, NoncesEnd: nonces.End}, nil
}

func (s *fakeSource) SubmitMessagesReceivingProof(_ context.Context, _ core.HeaderID, proof *MessagesReceivingProof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	received := Nonce(proof.RelayersState.MessagesInOldestEntry)
	if received <= s.confirmed {
		return errors.Wrap(core.ErrAlreadyIncluded, "stale confirmation")
	}
	s.events = append(s.events, fmt.Sprintf("confirm %d..%d", s.confirmed+1, received))
	if s.lagConfirmations {
		return nil
	}
	s.relayers.TotalMessages -= uint64(received - s.confirmed)
	if s.relayers.TotalMessages == 0 {
		s.relayers.UnrewardedRelayerEntries = 0
	}
	s.confirmed = received
	return nil
}

type fakeTarget struct{ *fakeLane }

var _ TargetClient = (*fakeTarget)(nil)

func (t *fakeTarget) Reconnect(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reconnects++
	return nil
}

func (t *fakeTarget) State(context.Context) (core.ClientState, error) {
	return t.state()
}

func (t *fakeTarget) LatestReceivedNonce(context.Context, core.HeaderID) (Nonce, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.received, nil
}

func (t *fakeTarget) LatestConfirmedNonce(context.Context, core.HeaderID) (Nonce, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.confirmed, nil
}

func (t *fakeTarget) UnrewardedRelayersState(context.Context, core.HeaderID) (UnrewardedRelayersState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.relayers, nil
}

// ProveMessagesReceiving smuggles the received nonce through the oldest
// entry counter so the source can apply the confirmation.
func (t *fakeTarget) ProveMessagesReceiving(_ context.Context, at core.HeaderID) (*MessagesReceivingProof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &MessagesReceivingProof{
		BridgedHeaderHash: at.Hash,
		RelayersState:     UnrewardedRelayersState{MessagesInOldestEntry: uint64(t.received)},
	}, nil
}

func (t *fakeTarget) SubmitMessagesProof(_ context.Context, _ core.HeaderID, nonces NonceRange, dispatchWeight uint64, proof *MessagesProof) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if proof.Nonces() != nonces {
		return errors.Wrap(core.ErrProofRejected, "proof does not match nonces")
	}
	if nonces.End <= t.received {
		return errors.Wrap(core.ErrAlreadyIncluded, "stale delivery")
	}
	if nonces.Begin != t.received+1 {
		return errors.Wrapf(core.ErrProofRejected, "expected nonce %d, got %d", t.received+1, nonces.Begin)
	}
	if dispatchWeight != nonces.Len()*t.weight {
		return errors.Wrap(core.ErrProofRejected, "wrong dispatch weight")
	}
	if t.refuse != nil {
		if err := t.refuse(nonces); err != nil {
			return err
		}
	}
	t.events = append(t.events, fmt.Sprintf("deliver %d..%d", nonces.Begin, nonces.End))
	t.deliveries = append(t.deliveries, nonces)
	t.received = nonces.End
	t.relayers.TotalMessages += nonces.Len()
	t.relayers.UnrewardedRelayerEntries++
	return nil
}

type progressRecorder struct {
	delivered []Nonce
	confirmed []Nonce
}

func (r *progressRecorder) SaveLaneProgress(_, _ string, _ LaneID, delivered, confirmed Nonce) error {
	r.delivered = append(r.delivered, delivered)
	r.confirmed = append(r.confirmed, confirmed)
	return nil
}

func testParams() Params {
	return Params{
		Lane:         LaneID{0, 0, 0, 1},
		StallTimeout: 10 * time.Minute,
		Limits: BatchLimits{
			MaxMessages:            10,
			MaxWeight:              5,
			MaxSize:                1 << 20,
			MaxUnrewardedEntries:   8,
			MaxUnconfirmedAtTarget: 32,
		},
	}
}
