package mock

import (
	"bytes"
	"sort"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/datachainlab/grandpa-relayer/core"
)

// state is the key-value storage of the chain. Every block keeps a snapshot
// of it, committed to by the header state root.
type state map[string][]byte

func (s state) clone() state {
	c := make(state, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

func (s state) sortedKeys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encodeNode(key string, value []byte) []byte {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	_ = enc.Encode([]byte(key))
	_ = enc.Encode(value)
	return buf.Bytes()
}

func decodeNode(node []byte) (string, []byte, error) {
	r := bytes.NewReader(node)
	dec := scale.NewDecoder(r)
	var key, value []byte
	if err := dec.Decode(&key); err != nil {
		return "", nil, err
	}
	if err := dec.Decode(&value); err != nil {
		return "", nil, err
	}
	if r.Len() != 0 {
		return "", nil, errors.Newf("%d trailing bytes in proof node", r.Len())
	}
	return string(key), value, nil
}

// nodes returns the proof of the whole state.
func (s state) nodes() [][]byte {
	keys := s.sortedKeys()
	nodes := make([][]byte, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, encodeNode(k, s[k]))
	}
	return nodes
}

func rootOf(nodes [][]byte) core.Hash {
	h, _ := blake2b.New256(nil)
	for _, n := range nodes {
		h.Write(n)
	}
	var root core.Hash
	copy(root[:], h.Sum(nil))
	return root
}

func (s state) root() core.Hash {
	return rootOf(s.nodes())
}

// verifyProof rebuilds the state proven by nodes and checks it against root.
func verifyProof(nodes [][]byte, root core.Hash) (state, error) {
	proven := make(state, len(nodes))
	var prev string
	for i, n := range nodes {
		k, v, err := decodeNode(n)
		if err != nil {
			return nil, errors.Wrap(err, "invalid proof node")
		}
		if i > 0 && k <= prev {
			return nil, errors.New("proof nodes are not sorted")
		}
		prev = k
		proven[k] = v
	}
	if rootOf(nodes) != root {
		return nil, errors.New("storage proof does not match the state root")
	}
	return proven, nil
}
