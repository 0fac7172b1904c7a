package congestion

import "github.com/lucas-clemente/quic-bbr/protocol"

// bandwidthSampler implements component C2. For every acked packet it
// derives two candidate delivery rates — one from how fast bytes left the
// sender (send rate) and one from how fast the peer confirmed them
// (ack rate) — and keeps the smaller of the two, since the slower side is
// whichever one is actually bottlenecked. The windowed max of these
// samples over the last bandwidthWindowRounds round trips is the estimate
// BBR paces to.
//
// It also owns the bandwidth-filter's app-limited flag: set_app_limited
// marks the filter app-limited with an exit target, and every subsequent
// ack clears it once an ack covers a packet sent past that target.
//
// Grounded on BbrBandwidthFilterOnPacketAcked in msquic's
// src/core/bbr.c.
type bandwidthSampler struct {
	filter *windowedExtremum[Bandwidth]

	appLimited           bool
	appLimitedExitTarget protocol.PacketNumber
}

func newBandwidthSampler() *bandwidthSampler {
	return &bandwidthSampler{filter: newWindowedMax[Bandwidth](bandwidthWindowRounds)}
}

// setAppLimited marks the filter app-limited, to be cleared once an ack
// covers something sent after target.
func (s *bandwidthSampler) setAppLimited(target protocol.PacketNumber) {
	s.appLimited = true
	s.appLimitedExitTarget = target
}

func (s *bandwidthSampler) isAppLimited() bool {
	return s.appLimited
}

// onAckStart clears a stale app-limited flag at the top of ack processing,
// before any packet in this ack is folded into the filter.
func (s *bandwidthSampler) onAckStart(largestAck protocol.PacketNumber) {
	if s.appLimited && s.appLimitedExitTarget < largestAck {
		s.appLimited = false
	}
}

// onPacketAcked folds in one acked packet's delivery-rate sample.
// totalBytesAcked is the connection's cumulative acked-byte counter as of
// this packet (after it is applied). ok is false if no rate could be
// derived (no last-acked info and no elapsed time since send).
func (s *bandwidthSampler) onPacketAcked(pkt AckedPacketInfo, timeNow, adjustedAckTime protocol.Timestamp, totalBytesAcked protocol.ByteCount, roundTripCount uint64) (sample Bandwidth, ok bool) {
	if pkt.PacketLength == 0 {
		return 0, false
	}

	var sendRate, ackRate Bandwidth
	haveSendRate, haveAckRate := false, false

	if pkt.HasLastAckedInfo {
		sendElapsed := pkt.SentTime.Sub(pkt.LastAckedInfo.SentTime)
		if sendElapsed > 0 {
			bytesSentDelta := pkt.TotalBytesSentAtSend - pkt.LastAckedInfo.TotalBytesSent
			sendRate = BandwidthFromDelta(bytesSentDelta, sendElapsed)
			haveSendRate = true
		}

		ackElapsed := adjustedAckTime.Sub(pkt.LastAckedInfo.AdjustedAckTime)
		if ackElapsed <= 0 {
			// Open question (spec §9): the source falls back to the raw
			// ack-to-ack span rather than the symmetric adjusted span.
			ackElapsed = timeNow.Sub(pkt.LastAckedInfo.AckTime)
		}
		if ackElapsed > 0 {
			bytesAckedDelta := totalBytesAcked - pkt.LastAckedInfo.TotalBytesAcked
			ackRate = BandwidthFromDelta(bytesAckedDelta, ackElapsed)
			haveAckRate = true
		}
	} else if timeNow.Sub(pkt.SentTime) > 0 {
		sendRate = BandwidthFromDelta(totalBytesAcked, timeNow.Sub(pkt.SentTime))
		haveSendRate = true
	}

	switch {
	case haveSendRate && haveAckRate:
		sample = sendRate
		if ackRate < sample {
			sample = ackRate
		}
	case haveSendRate:
		sample = sendRate
	case haveAckRate:
		sample = ackRate
	default:
		return 0, false
	}

	// An app-limited sample can never overstate the path's capacity, only
	// understate it, so it's only admitted when it is not dominated by
	// the current max.
	if sample >= s.filter.getValue() || !pkt.IsAppLimited {
		s.filter.update(sample, roundTripCount)
	}
	return sample, true
}

// estimate returns the current windowed-max delivery rate.
func (s *bandwidthSampler) estimate() Bandwidth {
	return s.filter.getValue()
}

func (s *bandwidthSampler) reset() {
	s.filter.reset()
	s.appLimited = false
	s.appLimitedExitTarget = 0
}
