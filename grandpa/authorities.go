package grandpa

import (
	"bytes"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"
)

func encodeAuthorityList(enc scale.Encoder, voters []Voter) error {
	if err := encodeCompact(enc, uint64(len(voters))); err != nil {
		return err
	}
	for _, v := range voters {
		if err := enc.Write(v.ID[:]); err != nil {
			return err
		}
		if err := enc.Encode(v.Weight); err != nil {
			return err
		}
	}
	return nil
}

func decodeAuthorityList(dec scale.Decoder) ([]Voter, error) {
	n, err := decodeLen(dec, maxVoters)
	if err != nil {
		return nil, err
	}
	voters := make([]Voter, n)
	for i := range voters {
		if err := dec.Read(voters[i].ID[:]); err != nil {
			return nil, err
		}
		if err := dec.Decode(&voters[i].Weight); err != nil {
			return nil, err
		}
	}
	return voters, nil
}

// EncodeAuthorityList encodes voters as returned by GrandpaApi_grandpa_authorities.
func EncodeAuthorityList(voters []Voter) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeAuthorityList(*scale.NewEncoder(&buf), voters); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeAuthorityList decodes the result of GrandpaApi_grandpa_authorities.
func DecodeAuthorityList(bz []byte) ([]Voter, error) {
	r := bytes.NewReader(bz)
	voters, err := decodeAuthorityList(*scale.NewDecoder(r))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode authority list")
	}
	if r.Len() != 0 {
		return nil, errors.Newf("authority list has %d trailing bytes", r.Len())
	}
	return voters, nil
}
