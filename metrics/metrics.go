package metrics

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	meterName     = "github.com/datachainlab/grandpa-relayer"
	namespaceRoot = "relayer"
)

// Instruments are no-ops until InitializeMetrics is called.
var (
	FinalityBestBlockGauge    *Int64SyncGauge
	SubmittedHeadersCounter   api.Int64Counter = noop.Int64Counter{}
	LaneNonceGauge            *Int64SyncGauge
	UnrewardedRelayersGauge   *Int64SyncGauge
	DeliveredMessagesCounter  api.Int64Counter = noop.Int64Counter{}
	ConfirmedMessagesCounter  api.Int64Counter = noop.Int64Counter{}
	SubmittedBatchesCounter   api.Int64Counter = noop.Int64Counter{}
	RelayLoopReconnectCounter api.Int64Counter = noop.Int64Counter{}
)

const (
	AttributeKeySource = attribute.Key("source")
	AttributeKeyTarget = attribute.Key("target")
	AttributeKeyLane   = attribute.Key("lane")
	AttributeKeyAt     = attribute.Key("at")
	AttributeKeyKind   = attribute.Key("kind")
	AttributeKeyLoop   = attribute.Key("loop")
)

// InitializeMetrics creates the instruments on the global meter provider.
func InitializeMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	gauges := []struct {
		gauge       **Int64SyncGauge
		name        string
		description string
	}{
		{&FinalityBestBlockGauge, "finality.best_block_number", "best finalized source header number seen at the source and at the target"},
		{&LaneNonceGauge, "lane.nonce", "latest generated, received and confirmed nonces of a lane"},
		{&UnrewardedRelayersGauge, "lane.unrewarded_relayer_entries", "number of unrewarded relayer entries at the target"},
	}
	for _, g := range gauges {
		name := fmt.Sprintf("%s.%s", namespaceRoot, g.name)
		if *g.gauge, err = NewInt64SyncGauge(
			meter,
			name,
			api.WithUnit("1"),
			api.WithDescription(g.description),
		); err != nil {
			return errors.Wrapf(err, "failed to create the instrument %s", name)
		}
	}

	counters := []struct {
		counter     *api.Int64Counter
		name        string
		description string
	}{
		{&SubmittedHeadersCounter, "finality.submitted_headers", "number of finality proofs submitted to the target"},
		{&DeliveredMessagesCounter, "lane.delivered_messages", "number of messages delivered to the target"},
		{&ConfirmedMessagesCounter, "lane.confirmed_messages", "number of message deliveries confirmed at the source"},
		{&SubmittedBatchesCounter, "lane.submitted_batches", "number of delivery and confirmation transactions"},
		{&RelayLoopReconnectCounter, "reconnects", "number of reconnections of relay loops"},
	}
	for _, c := range counters {
		name := fmt.Sprintf("%s.%s", namespaceRoot, c.name)
		if *c.counter, err = meter.Int64Counter(
			name,
			api.WithUnit("1"),
			api.WithDescription(c.description),
		); err != nil {
			return errors.Wrapf(err, "failed to create the instrument %s", name)
		}
	}

	return nil
}
