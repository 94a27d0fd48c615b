package finality

import (
	"context"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
	"github.com/datachainlab/grandpa-relayer/log"
)

// FinalityProof is a justification of a source header.
type FinalityProof struct {
	Justification *grandpa.Justification
}

// Number returns the number of the justified header.
func (p FinalityProof) Number() core.BlockNumber {
	return p.Justification.Commit.TargetNumber
}

// Source is the chain whose finalized headers are relayed.
type Source interface {
	core.Reconnector

	BestFinalizedBlockNumber(ctx context.Context) (core.BlockNumber, error)

	// HeaderAndFinalityProof returns the canonical header with the given
	// number and its justification, which is nil if the source has none.
	HeaderAndFinalityProof(ctx context.Context, number core.BlockNumber) (*grandpa.Header, *grandpa.Justification, error)

	// FinalityProofs streams justifications of headers finalized after the
	// call. The channel is closed when ctx is done or the stream breaks.
	FinalityProofs(ctx context.Context) (<-chan FinalityProof, error)
}

const (
	justificationCacheSize = 256
	finalityProofsBuffer   = 64
)

type cachedHeader struct {
	header        *grandpa.Header
	justification *grandpa.Justification
}

// ChainSource reads finality of a core.Chain.
type ChainSource struct {
	chain  core.Chain
	cache  *lru.Cache
	logger *log.RelayLogger
}

var _ Source = (*ChainSource)(nil)

func NewChainSource(chain core.Chain) *ChainSource {
	cache, err := lru.New(justificationCacheSize)
	if err != nil {
		panic(err)
	}
	return &ChainSource{
		chain:  chain,
		cache:  cache,
		logger: log.GetLogger().WithModule("finality.source").WithChain(chain.Name()),
	}
}

func (s *ChainSource) Reconnect(ctx context.Context) error {
	s.cache.Purge()
	return s.chain.Reconnect(ctx)
}

func (s *ChainSource) BestFinalizedBlockNumber(ctx context.Context) (core.BlockNumber, error) {
	id, err := s.chain.BestFinalizedHeaderID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Number, nil
}

func (s *ChainSource) HeaderAndFinalityProof(ctx context.Context, number core.BlockNumber) (*grandpa.Header, *grandpa.Justification, error) {
	if v, ok := s.cache.Get(number); ok {
		c := v.(cachedHeader)
		return c.header, c.justification, nil
	}
	header, encoded, err := s.chain.HeaderAndJustification(ctx, number)
	if err != nil {
		return nil, nil, err
	}
	if header == nil {
		return nil, nil, errors.Newf("header %d of %s is not available", number, s.chain.Name())
	}
	var j *grandpa.Justification
	if len(encoded) > 0 {
		if j, err = grandpa.DecodeJustification(encoded); err != nil {
			s.logger.WarnContext(ctx, "ignoring undecodable justification", "number", number, "error", err.Error())
			j = nil
		} else if j.Target() != header.ID() {
			s.logger.WarnContext(ctx, "ignoring justification of another header", "number", number, "target", j.Target().Number)
			j = nil
		}
	}
	s.cache.Add(number, cachedHeader{header: header, justification: j})
	return header, j, nil
}

// FinalityProofs streams the justifications pushed by the node. Nodes that
// cannot push them are polled every average block interval instead.
func (s *ChainSource) FinalityProofs(ctx context.Context) (<-chan FinalityProof, error) {
	encoded, err := s.chain.SubscribeJustifications(ctx)
	switch {
	case err == nil:
		return s.decode(ctx, encoded), nil
	case errors.Is(err, core.ErrUnsupported):
		s.logger.InfoContext(ctx, "justification subscription is not supported, polling finalized headers", "error", err.Error())
		return s.poll(ctx)
	default:
		return nil, err
	}
}

func (s *ChainSource) decode(ctx context.Context, encoded <-chan []byte) <-chan FinalityProof {
	ch := make(chan FinalityProof, finalityProofsBuffer)
	go func() {
		defer close(ch)
		for {
			var (
				bz []byte
				ok bool
			)
			select {
			case <-ctx.Done():
				return
			case bz, ok = <-encoded:
			}
			if !ok {
				if ctx.Err() == nil {
					s.logger.WarnContext(ctx, "finality proofs stream broken")
				}
				return
			}
			j, err := grandpa.DecodeJustification(bz)
			if err != nil {
				s.logger.WarnContext(ctx, "ignoring undecodable justification", "error", err.Error())
				continue
			}
			select {
			case ch <- FinalityProof{Justification: j}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// poll emits the justifications of headers finalized after the call, read
// block by block.
func (s *ChainSource) poll(ctx context.Context) (<-chan FinalityProof, error) {
	last, err := s.BestFinalizedBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	ch := make(chan FinalityProof, finalityProofsBuffer)
	go func() {
		defer close(ch)
		for {
			if err := core.Wait(ctx, s.chain.AverageBlockInterval()); err != nil {
				return
			}
			best, err := s.BestFinalizedBlockNumber(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "finality proofs stream broken", "error", err.Error())
				return
			}
			for ; last < best; last++ {
				_, j, err := s.HeaderAndFinalityProof(ctx, last+1)
				if err != nil {
					s.logger.WarnContext(ctx, "finality proofs stream broken", "error", err.Error())
					return
				}
				if j == nil {
					continue
				}
				select {
				case ch <- FinalityProof{Justification: j}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
