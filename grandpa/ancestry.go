package grandpa

import "github.com/cockroachdb/errors"

// AncestryChain is a parent index over the votes ancestries of a
// justification. It tracks which headers were used by descendance checks so
// that unused (padding) headers can be detected.
type AncestryChain struct {
	parents   map[Hash]Hash
	unvisited map[Hash]struct{}
}

// NewAncestryChain indexes headers by hash.
func NewAncestryChain(headers []Header) *AncestryChain {
	parents := make(map[Hash]Hash, len(headers))
	unvisited := make(map[Hash]struct{}, len(headers))
	for i := range headers {
		hash := headers[i].Hash()
		parents[hash] = headers[i].ParentHash
		unvisited[hash] = struct{}{}
	}
	return &AncestryChain{parents: parents, unvisited: unvisited}
}

// EnsureDescendant returns nil if precommitTarget is commitTarget or one of
// its descendants according to the indexed headers.
func (c *AncestryChain) EnsureDescendant(commitTarget, precommitTarget Hash) error {
	current := precommitTarget
	for current != commitTarget {
		parent, ok := c.parents[current]
		if !ok {
			return errors.Wrapf(ErrPrecommitIsNotCommitDescendant,
				"no parent of %s while looking for %s", current, commitTarget)
		}
		if _, fresh := c.unvisited[current]; !fresh {
			// proven to descend from the commit target by an earlier call
			return nil
		}
		delete(c.unvisited, current)
		current = parent
	}
	return nil
}

// Unvisited returns the number of headers never used by EnsureDescendant.
func (c *AncestryChain) Unvisited() int {
	return len(c.unvisited)
}
