package congestion

import (
	"testing"

	"github.com/lucas-clemente/quic-bbr/protocol"
)

func TestAckAggregationFirstSampleSeedsTheEpoch(t *testing.T) {
	a := newAckAggregationFilter()
	got := a.onAckedBytes(0, 1000, BandwidthFromBytesPerSecond(1_000_000), 0)
	if got != 0 {
		t.Errorf("first sample should report zero excess, got %d", got)
	}
}

func TestAckAggregationAccumulatesExcessAboveExpected(t *testing.T) {
	a := newAckAggregationFilter()
	// The first ack only seeds the epoch's start time, carrying no bytes
	// forward (onAckedBytes must report zero excess here per spec §4.3).
	a.onAckedBytes(0, 1000, BandwidthFromBytesPerSecond(1), 0)
	// The second ack, with a near-zero expected delivery, immediately
	// resets the epoch and seeds epochBytes with its own acked bytes.
	a.onAckedBytes(protocol.Timestamp(1000), 1000, BandwidthFromBytesPerSecond(1), 0)
	// With a tiny bandwidth estimate, nearly all bytes delivered from here
	// count as excess above what the estimate predicted.
	excess := a.onAckedBytes(protocol.Timestamp(2000), 5000, BandwidthFromBytesPerSecond(1), 0)
	if excess == 0 {
		t.Error("expected positive aggregation excess")
	}
}

func TestAckAggregationResetsWhenDeliveryKeepsPace(t *testing.T) {
	a := newAckAggregationFilter()
	a.onAckedBytes(0, 1000, BandwidthFromBytesPerSecond(1_000_000_000), 0)
	// A huge bandwidth estimate means expected bytes vastly exceeds what
	// was actually acked, so the epoch resets rather than accumulating.
	got := a.onAckedBytes(protocol.Timestamp(1_000_000), 1000, BandwidthFromBytesPerSecond(1_000_000_000), 0)
	if got != a.estimate() {
		t.Error("estimate should reflect the windowed max, not the reset epoch")
	}
}

func TestAckAggregationReset(t *testing.T) {
	a := newAckAggregationFilter()
	a.onAckedBytes(0, 1000, BandwidthFromBytesPerSecond(1), 0)
	a.onAckedBytes(protocol.Timestamp(1000), 5000, BandwidthFromBytesPerSecond(1), 0)
	a.reset()
	if a.estimate() != 0 {
		t.Error("expected zero estimate after reset")
	}
	if a.hasEpoch {
		t.Error("expected hasEpoch to be false after reset")
	}
}
