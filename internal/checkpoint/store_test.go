package checkpoint

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/datachainlab/grandpa-relayer/messages"
)

func TestStore(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err = s.FinalityProgress("Millau", "Rialto")
	require.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.SaveFinalityProgress("Millau", "Rialto", 10))
	require.NoError(t, s.SaveFinalityProgress("Millau", "Rialto", 12))
	require.NoError(t, s.SaveFinalityProgress("Rialto", "Millau", 3))

	lane := messages.LaneID{0, 0, 0, 1}
	require.NoError(t, s.SaveLaneProgress("Millau", "Rialto", lane, 5, 4))
	require.NoError(t, s.SaveLaneProgress("Rialto", "Westend", lane, 1, 0))

	p, err := s.FinalityProgress("Millau", "Rialto")
	require.NoError(t, err)
	require.EqualValues(t, 12, p.Number)
	require.Equal(t, now, p.UpdatedAt)
	require.NoError(t, s.Close())

	// progress survives reopening
	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	finality, err := s.Finality()
	require.NoError(t, err)
	require.Len(t, finality, 2)
	require.Equal(t, "Millau", finality[0].Source)
	require.Equal(t, "Rialto", finality[1].Source)

	lp, err := s.LaneProgress("Millau", "Rialto", lane)
	require.NoError(t, err)
	require.EqualValues(t, 5, lp.Delivered)
	require.EqualValues(t, 4, lp.Confirmed)
	require.Equal(t, lane, lp.Lane)

	lanes, err := s.Lanes()
	require.NoError(t, err)
	require.Len(t, lanes, 2)
	require.Len(t, Involving(lanes, "Rialto", "Millau"), 1)
	require.Empty(t, Involving(lanes, "Millau", "Westend"))
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.SaveFinalityProgress("Millau", "Rialto", 1))
	p, err := s.FinalityProgress("Millau", "Rialto")
	require.NoError(t, err)
	require.EqualValues(t, 1, p.Number)
}
