// Package checkpoint persists the progress of relay loops so that it can be
// inspected while and after the relayer runs.
package checkpoint

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v2"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/finality"
	"github.com/datachainlab/grandpa-relayer/messages"
)

const (
	finalityPrefix = "finality/"
	lanePrefix     = "lane/"
)

var ErrNotFound = errors.New("checkpoint not found")

// FinalityProgress is the latest source header imported by a target.
type FinalityProgress struct {
	Source    string           `json:"source"`
	Target    string           `json:"target"`
	Number    core.BlockNumber `json:"number"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// LaneProgress is the latest delivered and confirmed nonce of a lane.
type LaneProgress struct {
	Source    string          `json:"source"`
	Target    string          `json:"target"`
	Lane      messages.LaneID `json:"lane"`
	Delivered messages.Nonce  `json:"delivered"`
	Confirmed messages.Nonce  `json:"confirmed"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is a badger backed checkpoint store.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

var (
	_ finality.ProgressStore = (*Store)(nil)
	_ messages.ProgressStore = (*Store)(nil)
)

// Open opens the store in dir. An empty dir opens an in-memory store.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open checkpoint store %q", dir)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "failed to close checkpoint store")
}

func finalityKey(source, target string) []byte {
	return []byte(finalityPrefix + source + "/" + target)
}

func laneKey(source, target string, lane messages.LaneID) []byte {
	return []byte(lanePrefix + source + "/" + target + "/" + lane.String())
}

func (s *Store) put(key []byte, v interface{}) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrapf(s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bz)
	}), "failed to write checkpoint %s", key)
}

func (s *Store) get(key []byte, v interface{}) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.Wrapf(ErrNotFound, "%s", key)
	}
	return errors.Wrapf(err, "failed to read checkpoint %s", key)
}

// SaveFinalityProgress records that target imported source header number.
func (s *Store) SaveFinalityProgress(source, target string, number core.BlockNumber) error {
	return s.put(finalityKey(source, target), FinalityProgress{
		Source:    source,
		Target:    target,
		Number:    number,
		UpdatedAt: s.now().UTC(),
	})
}

func (s *Store) FinalityProgress(source, target string) (*FinalityProgress, error) {
	var p FinalityProgress
	if err := s.get(finalityKey(source, target), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveLaneProgress records the nonces a lane loop has observed.
func (s *Store) SaveLaneProgress(source, target string, lane messages.LaneID, delivered, confirmed messages.Nonce) error {
	return s.put(laneKey(source, target, lane), LaneProgress{
		Source:    source,
		Target:    target,
		Lane:      lane,
		Delivered: delivered,
		Confirmed: confirmed,
		UpdatedAt: s.now().UTC(),
	})
}

func (s *Store) LaneProgress(source, target string, lane messages.LaneID) (*LaneProgress, error) {
	var p LaneProgress
	if err := s.get(laneKey(source, target, lane), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Finality returns the progress of every header relay, ordered by key.
func (s *Store) Finality() ([]FinalityProgress, error) {
	var out []FinalityProgress
	err := s.scan(finalityPrefix, func(val []byte) error {
		var p FinalityProgress
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// Lanes returns the progress of every lane relay, ordered by key.
func (s *Store) Lanes() ([]LaneProgress, error) {
	var out []LaneProgress
	err := s.scan(lanePrefix, func(val []byte) error {
		var p LaneProgress
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// Involving filters lane progress down to lanes between the given chains.
func Involving(lanes []LaneProgress, a, b string) []LaneProgress {
	var out []LaneProgress
	for _, l := range lanes {
		if (strings.EqualFold(l.Source, a) && strings.EqualFold(l.Target, b)) ||
			(strings.EqualFold(l.Source, b) && strings.EqualFold(l.Target, a)) {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) scan(prefix string, fn func(val []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrapf(err, "failed to scan checkpoints %s", prefix)
}
