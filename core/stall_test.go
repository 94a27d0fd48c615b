package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/datachainlab/grandpa-relayer/core"
)

func TestTransactionStallTimeout(t *testing.T) {
	tests := []struct {
		name      string
		mortality *uint32
		interval  time.Duration
		def       time.Duration
		want      time.Duration
	}{
		{"immortal uses default", nil, 6 * time.Second, 10 * time.Minute, 10 * time.Minute},
		{"mortal", u32(64), 6 * time.Second, time.Hour, 66 * 6 * time.Second},
		{"floored", u32(4), time.Second, time.Hour, core.MinStallTimeout},
		{"default floored", nil, time.Second, time.Second, core.MinStallTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.TransactionStallTimeout(tt.mortality, tt.interval, tt.def))
		})
	}
}

func TestBidirectionalTransactionStallTimeout(t *testing.T) {
	got := core.BidirectionalTransactionStallTimeout(u32(64), u32(16), 6*time.Second, 12*time.Second, time.Hour)
	assert.Equal(t, 66*6*time.Second, got)

	got = core.BidirectionalTransactionStallTimeout(u32(64), nil, 6*time.Second, 12*time.Second, time.Hour)
	assert.Equal(t, time.Hour, got)
}
