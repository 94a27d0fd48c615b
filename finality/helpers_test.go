package finality

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
)

// testChain builds a linear chain of n headers numbered from 1. Headers in
// mandatory carry an authority set change.
func testChain(n int, mandatory ...core.BlockNumber) []*grandpa.Header {
	isMandatory := map[core.BlockNumber]bool{}
	for _, m := range mandatory {
		isMandatory[m] = true
	}
	headers := make([]*grandpa.Header, 0, n)
	parent := grandpa.Hash{0xee}
	for i := 1; i <= n; i++ {
		h := &grandpa.Header{ParentHash: parent, Number: core.BlockNumber(i), StateRoot: grandpa.Hash{byte(i)}}
		if isMandatory[h.Number] {
			item, err := grandpa.NewScheduledChangeDigest(grandpa.ScheduledChange{
				NextAuthorities: []grandpa.Voter{{ID: grandpa.AuthorityID{byte(i)}, Weight: 1}},
			})
			if err != nil {
				panic(err)
			}
			h.Digest = []grandpa.DigestItem{item}
		}
		headers = append(headers, h)
		parent = h.Hash()
	}
	return headers
}

func justificationOf(h *grandpa.Header) *grandpa.Justification {
	return &grandpa.Justification{
		Round: 1,
		Commit: grandpa.Commit{
			TargetHash:   h.Hash(),
			TargetNumber: h.Number,
		},
	}
}

type fakeSource struct {
	mu             sync.Mutex
	headers        []*grandpa.Header
	justified      map[core.BlockNumber]bool
	best           core.BlockNumber
	proofs         chan FinalityProof
	failNext       error
	reconnects     int
	headerRequests int
	// contexts of the FinalityProofs calls
	streams []context.Context
}

func newFakeSource(headers []*grandpa.Header, justified ...core.BlockNumber) *fakeSource {
	s := &fakeSource{
		headers:   headers,
		justified: map[core.BlockNumber]bool{},
		best:      core.BlockNumber(len(headers)),
		proofs:    make(chan FinalityProof, 16),
	}
	for _, n := range justified {
		s.justified[n] = true
	}
	return s
}

func (s *fakeSource) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *fakeSource) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *fakeSource) BestFinalizedBlockNumber(context.Context) (core.BlockNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}
	return s.best, nil
}

func (s *fakeSource) HeaderAndFinalityProof(_ context.Context, number core.BlockNumber) (*grandpa.Header, *grandpa.Justification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headerRequests++
	if number == 0 || int(number) > len(s.headers) {
		return nil, nil, errors.Newf("unknown header %d", number)
	}
	h := s.headers[number-1]
	if s.justified[number] {
		return h, justificationOf(h), nil
	}
	return h, nil, nil
}

func (s *fakeSource) FinalityProofs(ctx context.Context) (<-chan FinalityProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = append(s.streams, ctx)
	return s.proofs, nil
}

// openStreams returns how many streams have not been cancelled.
func (s *fakeSource) openStreams() (open, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ctx := range s.streams {
		if ctx.Err() == nil {
			open++
		}
	}
	return open, len(s.streams)
}

type fakeTarget struct {
	mu          sync.Mutex
	best        core.BlockNumber
	autoImport  bool
	submitted   []core.BlockNumber
	submitErr   error
	readErr     error
	reconnects  int
	onSubmitted func(core.BlockNumber)
}

func (t *fakeTarget) Reconnect(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reconnects++
	return nil
}

func (t *fakeTarget) BestFinalizedSourceBlockNumber(context.Context) (core.BlockNumber, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.readErr; err != nil {
		t.readErr = nil
		return 0, err
	}
	return t.best, nil
}

func (t *fakeTarget) SubmitFinalityProof(_ context.Context, header *grandpa.Header, j *grandpa.Justification) error {
	t.mu.Lock()
	if err := t.submitErr; err != nil {
		t.submitErr = nil
		t.mu.Unlock()
		return err
	}
	if j.Commit.TargetHash != header.Hash() {
		t.mu.Unlock()
		return errors.Mark(errors.New("justification does not match header"), core.ErrProofRejected)
	}
	t.submitted = append(t.submitted, header.Number)
	if t.autoImport {
		t.best = header.Number
	}
	cb := t.onSubmitted
	t.mu.Unlock()
	if cb != nil {
		cb(header.Number)
	}
	return nil
}

func (t *fakeTarget) importUpTo(n core.BlockNumber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.best = n
}

func (t *fakeTarget) submissions() []core.BlockNumber {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]core.BlockNumber(nil), t.submitted...)
}
