package congestion

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/lucas-clemente/quic-bbr/protocol"
)

// fixedRandomSource returns a deterministic sequence, letting ProbeBW
// entry tests assert on an exact cycle index rather than merely "not 1".
type fixedRandomSource struct {
	values []uint32
	idx    int
}

func (f *fixedRandomSource) Uint32() uint32 {
	v := f.values[f.idx%len(f.values)]
	f.idx++
	return v
}

func newTestSender(rng RandomSource) *Sender {
	if rng == nil {
		rng = &fixedRandomSource{values: []uint32{0}}
	}
	return New(Settings{
		InitialWindowPackets: 10,
		DatagramPayloadSize:  1200,
		PacingEnabled:        true,
		NetStatsEventEnabled: false,
	}, nil, nil, rng)
}

func mkAck(now protocol.Timestamp, largestAcked, largestSent protocol.PacketNumber, acked protocol.ByteCount, totalAcked protocol.ByteCount) AckEvent {
	return AckEvent{
		TimeNow:                           now,
		LargestAcked:                      largestAcked,
		LargestSentPacketNumber:           largestSent,
		AdjustedAckTime:                   now,
		NumRetransmittableBytes:           acked,
		NumTotalAckedRetransmittableBytes: totalAcked,
	}
}

var _ = Describe("Sender", func() {
	var s *Sender

	BeforeEach(func() {
		s = newTestSender(nil)
	})

	It("starts in Startup with the minimum congestion window already satisfied (I1)", func() {
		Expect(s.phase).To(Equal(PhaseStartup))
		Expect(s.GetCongestionWindow()).To(BeNumerically(">=", s.minCwnd))
	})

	It("never reports a congestion window below min_cwnd (I1)", func() {
		s.cwnd = 0
		s.updateCwnd(0, 0)
		Expect(s.GetCongestionWindow()).To(Equal(protocol.ByteCount(4 * 1200)))
	})

	It("pins the congestion window to min_cwnd in ProbeRTT regardless of cwnd (I3)", func() {
		s.cwnd = 500_000
		s.phase = PhaseProbeRTT
		Expect(s.GetCongestionWindow()).To(Equal(s.minCwnd))
	})

	It("clamps the congestion window to the recovery window while recovering (I4)", func() {
		s.cwnd = 100_000
		s.recovery.state = recoveryConservative
		s.recovery.window = 30_000
		Expect(s.GetCongestionWindow()).To(Equal(protocol.ByteCount(30_000)))
		Expect(s.GetCongestionWindow()).To(BeNumerically("<=", s.cwnd))
	})

	It("never enters ProbeBW at pacing-cycle index 1 (I5)", func() {
		rng := &fixedRandomSource{values: []uint32{6}} // (6%7+2)%8 == 0, but try several seeds
		s = newTestSender(rng)
		for seed := uint32(0); seed < 50; seed++ {
			rng.values[0] = seed
			s.transitToProbeBW(0)
			Expect(s.pacingCycleIndex).NotTo(Equal(1))
		}
	})

	It("computes target_cwnd as a plain multiple of initial_cwnd with no bandwidth estimate (B1)", func() {
		target := s.targetCwnd(gainUnit)
		Expect(target).To(Equal(s.initialCwnd))
	})

	It("floors send_quantum to the MSS below the low pacing threshold (B2)", func() {
		s.computeSendQuantum()
		Expect(s.sendQuantum).To(Equal(s.mss))
	})

	It("caps send_quantum at 64 KiB above the high pacing threshold (B3)", func() {
		// Force a very large bandwidth estimate by feeding one huge sample.
		s.bandwidth.filter.update(BandwidthFromBytesPerSecond(1<<40), 0)
		s.pacingGain = gainUnit
		s.computeSendQuantum()
		Expect(s.sendQuantum).To(Equal(protocol.ByteCount(64 * 1024)))
	})

	It("collapses the recovery window to min_cwnd under persistent congestion (S4)", func() {
		s.OnDataSent(100_000)
		s.OnDataLost(LossEvent{
			LargestSentPacketNumber: 10,
			NumRetransmittableBytes: 10_000,
			PersistentCongestion:    true,
		})
		Expect(s.recovery.window).To(Equal(s.minCwnd))
		Expect(s.minCwnd).To(Equal(protocol.ByteCount(4 * 1200)))
	})

	It("enters Conservative recovery anchored at bytes_in_flight on loss (S3)", func() {
		s.OnDataSent(50_000)
		s.OnDataLost(LossEvent{
			LargestSentPacketNumber: 20,
			NumRetransmittableBytes: 5_000,
		})
		Expect(s.recovery.state).To(Equal(recoveryConservative))
		Expect(s.recovery.endOfRecovery).To(Equal(protocol.PacketNumber(20)))
	})

	It("exits recovery once an ack with no loss covers a packet sent after the loss (S3)", func() {
		s.OnDataSent(50_000)
		s.OnDataLost(LossEvent{LargestSentPacketNumber: 20, NumRetransmittableBytes: 5_000})
		Expect(s.recovery.inRecovery()).To(BeTrue())

		s.OnDataAcknowledged(mkAck(1000, 25, 25, 1_000, 1_000))
		Expect(s.recovery.inRecovery()).To(BeFalse())
	})

	It("caps get_send_allowance at cwnd/4 on a large burst (S6)", func() {
		s.cwnd = 100_000
		s.bytesInFlight = 0
		d := time.Hour
		allowance := s.GetSendAllowance(&d, false)
		Expect(allowance).To(Equal(protocol.ByteCount(100_000)))

		// With pacing active and a real RTT/bandwidth estimate, the burst
		// cap of cwnd/4 applies.
		s.minRTT.update(30*time.Millisecond, 0)
		s.bandwidth.filter.update(BandwidthFromBytesPerSecond(10_000_000), 0)
		allowance = s.GetSendAllowance(&d, true)
		Expect(allowance).To(BeNumerically("<=", 25_000))
	})

	It("suppresses an app-limited sample that doesn't beat the current max (I8/S5)", func() {
		last := LastAckedInfo{SentTime: 0, AckTime: 0, AdjustedAckTime: 0, TotalBytesSent: 0, TotalBytesAcked: 0}
		high := AckedPacketInfo{
			PacketLength:         1200,
			SentTime:             1_000_000,
			TotalBytesSentAtSend: 1200,
			HasLastAckedInfo:     true,
			LastAckedInfo:        last,
			IsAppLimited:         false,
		}
		s.bandwidth.onPacketAcked(high, 1_100_000, 1_100_000, 1200, 1)
		maxBefore := s.bandwidth.estimate()
		Expect(maxBefore).To(BeNumerically(">", 0))

		low := AckedPacketInfo{
			PacketLength:         1200,
			SentTime:             2_000_000,
			TotalBytesSentAtSend: 2400,
			HasLastAckedInfo:     true,
			LastAckedInfo:        LastAckedInfo{SentTime: 1_000_000, AckTime: 1_100_000, AdjustedAckTime: 1_100_000, TotalBytesSent: 1200, TotalBytesAcked: 1200},
			IsAppLimited:         true,
		}
		// Make this sample's rate far lower than maxBefore by stretching
		// elapsed time enormously.
		s.bandwidth.onPacketAcked(low, 1_000_000_000, 1_000_000_000, 2400, 1)
		Expect(s.bandwidth.estimate()).To(Equal(maxBefore))
	})
})

var _ = Describe("Sender reset", func() {
	It("Reset(full=true) zeroes bytes_in_flight and restores Startup (L1)", func() {
		s := newTestSender(nil)
		s.OnDataSent(10_000)
		Expect(s.bytesInFlight).To(BeNumerically(">", 0))

		s.Reset(true)
		Expect(s.bytesInFlight).To(Equal(protocol.ByteCount(0)))
		Expect(s.phase).To(Equal(PhaseStartup))
		Expect(s.cwnd).To(Equal(s.initialCwnd))
	})

	It("Reset(full=false) preserves bytes_in_flight", func() {
		s := newTestSender(nil)
		s.OnDataSent(10_000)
		s.Reset(false)
		Expect(s.bytesInFlight).To(Equal(protocol.ByteCount(10_000)))
	})
})
