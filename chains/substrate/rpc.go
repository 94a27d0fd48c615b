package substrate

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"

	gethrpc "github.com/centrifuge/go-substrate-rpc-client/v4/gethrpc"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
)

// JSON-RPC methods of a Substrate node.
const (
	methodGetBlockHash     = "chain_getBlockHash"
	methodGetBlock         = "chain_getBlock"
	methodGetHeader        = "chain_getHeader"
	methodGetFinalizedHead = "chain_getFinalizedHead"
	methodStateCall        = "state_call"
	methodGetReadProof     = "state_getReadProof"
	methodGetStorage       = "state_getStorage"
	methodGetMetadata      = "state_getMetadata"
	methodRuntimeVersion   = "state_getRuntimeVersion"
	methodHealth           = "system_health"
	methodAccountNextIndex = "system_accountNextIndex"
	methodSubmitExtrinsic  = "author_submitExtrinsic"
)

// GRANDPA justification subscription, namespace and method suffixes.
const (
	grandpaNamespace                = "grandpa"
	methodSubscribeJustifications   = "subscribeJustifications"
	methodUnsubscribeJustifications = "unsubscribeJustifications"
	notificationJustifications      = "justifications"
)

// engine id of GRANDPA justifications
var grandpaEngineID = [4]byte{'F', 'R', 'N', 'K'}

// Transaction pool error codes.
const (
	codeInvalidTransaction = 1010
	codeAlreadyImported    = 1013
	codeMethodNotFound     = -32601
)

type rpcError interface {
	ErrorCode() int
}

// classify marks errors returned by the node. Errors without a JSON-RPC error
// code come from the transport.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var re rpcError
	if !errors.As(err, &re) {
		return core.ConnectionError(err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case re.ErrorCode() == codeAlreadyImported:
		return errors.Mark(err, core.ErrAlreadyIncluded)
	case strings.Contains(msg, "exhausts resources"), strings.Contains(msg, "too large"):
		return errors.Mark(err, core.ErrBatchTooLarge)
	case re.ErrorCode() == codeInvalidTransaction && strings.Contains(msg, "custom error"):
		return errors.Mark(err, core.ErrProofRejected)
	}
	return err
}

// classifySubscription marks subscription errors of transports or nodes that
// cannot push notifications as unsupported.
func classifySubscription(err error) error {
	if err == nil {
		return nil
	}
	var re rpcError
	if errors.Is(err, gethrpc.ErrNotificationsUnsupported) || (errors.As(err, &re) && re.ErrorCode() == codeMethodNotFound) {
		return errors.Mark(err, core.ErrUnsupported)
	}
	return classify(err)
}

func encodeHex(bz []byte) string {
	return "0x" + hex.EncodeToString(bz)
}

func decodeHex(s string) ([]byte, error) {
	bz, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	return bz, errors.Wrapf(err, "invalid hex %q", s)
}

func decodeHash(s string) (core.Hash, error) {
	var h core.Hash
	bz, err := decodeHex(s)
	if err != nil {
		return h, err
	}
	if len(bz) != len(h) {
		return h, errors.Newf("invalid hash %q", s)
	}
	copy(h[:], bz)
	return h, nil
}

// bytesJSON decodes bytes serialized either as a hex string or as an array
// of numbers.
type bytesJSON []byte

func (b *bytesJSON) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		bz, err := decodeHex(s)
		if err != nil {
			return err
		}
		*b = bz
		return nil
	}
	var nums []uint16
	if err := json.Unmarshal(data, &nums); err != nil {
		return errors.Wrap(err, "invalid bytes")
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		if n > 0xff {
			return errors.Newf("invalid byte %d", n)
		}
		out[i] = byte(n)
	}
	*b = out
	return nil
}

// justification is an (engine id, encoded justification) pair.
type justification struct {
	EngineID [4]byte
	Data     []byte
}

func (j *justification) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.Newf("invalid justification of %d elements", len(pair))
	}
	var id, bz bytesJSON
	if err := json.Unmarshal(pair[0], &id); err != nil {
		return err
	}
	if len(id) != len(j.EngineID) {
		return errors.Newf("invalid engine id %x", []byte(id))
	}
	if err := json.Unmarshal(pair[1], &bz); err != nil {
		return err
	}
	copy(j.EngineID[:], id)
	j.Data = bz
	return nil
}

type signedBlock struct {
	Block struct {
		Header types.Header `json:"header"`
	} `json:"block"`
	Justifications []justification `json:"justifications"`
}

// grandpaJustification returns the encoded GRANDPA justification of the
// block, or nil if it has none.
func (b *signedBlock) grandpaJustification() []byte {
	for _, j := range b.Justifications {
		if j.EngineID == grandpaEngineID {
			return j.Data
		}
	}
	return nil
}

// convertHeader re-encodes a node header as a GRANDPA header.
func convertHeader(h *types.Header) (*grandpa.Header, error) {
	var buf bytes.Buffer
	if err := scale.NewEncoder(&buf).Encode(*h); err != nil {
		return nil, errors.Wrap(err, "failed to encode header")
	}
	return grandpa.DecodeHeader(buf.Bytes())
}

type readProof struct {
	At    string   `json:"at"`
	Proof []string `json:"proof"`
}

type health struct {
	Peers           uint64 `json:"peers"`
	IsSyncing       bool   `json:"isSyncing"`
	ShouldHavePeers bool   `json:"shouldHavePeers"`
}

func (h health) synced() bool {
	return !h.IsSyncing && (h.Peers > 0 || !h.ShouldHavePeers)
}
