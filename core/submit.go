package core

import (
	"context"
	"sync"
)

// CallSubmitter signs calls with a single signer and submits them to a chain.
// Transactions are mortal if mortality is set.
type CallSubmitter struct {
	chain     Chain
	signer    Signer
	mortality *uint32

	mu      sync.Mutex
	genesis *Hash
}

func NewCallSubmitter(chain Chain, signer Signer, mortality *uint32) *CallSubmitter {
	return &CallSubmitter{chain: chain, signer: signer, mortality: mortality}
}

func (s *CallSubmitter) Signer() Signer {
	return s.signer
}

func (s *CallSubmitter) Mortality() *uint32 {
	return s.mortality
}

// Submit signs call at the current best block and submits it.
func (s *CallSubmitter) Submit(ctx context.Context, call Call) (TransactionStatus, error) {
	genesis, err := s.genesisHash(ctx)
	if err != nil {
		return TransactionStatus{}, err
	}
	return s.chain.SubmitSignedTransaction(ctx, s.signer, func(best HeaderID, nonce uint32) ([]byte, error) {
		return s.chain.SignTransaction(s.signer, genesis, NewEra(best, s.mortality), call, nonce)
	})
}

func (s *CallSubmitter) genesisHash(ctx context.Context) (Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.genesis != nil {
		return *s.genesis, nil
	}
	h, err := s.chain.GenesisHash(ctx)
	if err != nil {
		return Hash{}, err
	}
	s.genesis = &h
	return h, nil
}
