package congestion

import "github.com/lucas-clemente/quic-bbr/protocol"

// ackAggregationFilter implements component C3. Acks don't arrive evenly:
// a receiver can hold several segments' worth of acks back and release
// them in one burst. BBR sizes part of its congestion window to absorb
// that burst rather than stall waiting for the next one, and this filter
// is what measures how big a burst to expect.
//
// It compares bytes actually acked within a rolling epoch against what the
// current bandwidth estimate predicted would be acked in that span; the
// excess is "aggregation", and the windowed max of that excess over
// bandwidthWindowRounds round trips is the extra cwnd headroom BBR grants.
//
// Grounded on BbrCongestionControlUpdateAckAggregation in msquic's
// src/core/bbr.c.
type ackAggregationFilter struct {
	filter            *windowedExtremum[protocol.ByteCount]
	epochStartTime    protocol.Timestamp
	epochBytes        protocol.ByteCount
	hasEpoch          bool
}

func newAckAggregationFilter() *ackAggregationFilter {
	return &ackAggregationFilter{filter: newWindowedMax[protocol.ByteCount](bandwidthWindowRounds)}
}

// onAckedBytes folds bytesAcked, delivered at ackTime, into the current
// aggregation epoch and returns the updated windowed-max extra-bytes
// estimate.
func (a *ackAggregationFilter) onAckedBytes(ackTime protocol.Timestamp, bytesAcked protocol.ByteCount, bandwidthEstimate Bandwidth, roundTripCount uint64) protocol.ByteCount {
	if !a.hasEpoch {
		a.hasEpoch = true
		a.epochStartTime = ackTime
		return a.filter.getValue()
	}

	expected := bandwidthEstimate.TransferSize(ackTime.Sub(a.epochStartTime))
	if a.epochBytes <= expected {
		// Delivery kept pace with the estimate: no aggregation built up,
		// start a fresh epoch.
		a.epochStartTime = ackTime
		a.epochBytes = bytesAcked
		return a.filter.getValue()
	}

	a.epochBytes += bytesAcked
	extra := a.epochBytes - expected
	a.filter.update(extra, roundTripCount)
	return a.filter.getValue()
}

// estimate returns the current windowed-max ack-aggregation estimate
// without folding in a new sample.
func (a *ackAggregationFilter) estimate() protocol.ByteCount {
	return a.filter.getValue()
}

func (a *ackAggregationFilter) reset() {
	a.filter.reset()
	a.hasEpoch = false
	a.epochBytes = 0
	a.epochStartTime = 0
}
