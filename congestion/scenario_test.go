package congestion

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/lucas-clemente/quic-bbr/internal/simulate"
	"github.com/lucas-clemente/quic-bbr/protocol"
)

// driveRound sends n packets back to back, then acks all of them at once
// after an rtt of simulated delay, returning the packet number of the
// last packet sent (and acked) in this round.
func driveRound(s *Sender, tr *simulate.Tracker, start protocol.PacketNumber, n int, sizePerPacket protocol.ByteCount, sendTime protocol.Timestamp, rtt time.Duration) protocol.PacketNumber {
	last := start
	for i := 0; i < n; i++ {
		num := start + protocol.PacketNumber(i)
		tr.SentPacket(num, sizePerPacket, sendTime)
		s.OnDataSent(sizePerPacket)
		last = num
	}

	ackTime := sendTime.Add(rtt)
	var packets []AckedPacketInfo
	for i := 0; i < n; i++ {
		num := start + protocol.PacketNumber(i)
		info, ok := tr.AckPacket(num, ackTime, false)
		Expect(ok).To(BeTrue())
		packets = append(packets, info)
	}

	s.OnDataAcknowledged(AckEvent{
		TimeNow:                           ackTime,
		LargestAcked:                      last,
		LargestSentPacketNumber:           last,
		AdjustedAckTime:                   ackTime,
		NumRetransmittableBytes:           sizePerPacket * protocol.ByteCount(n),
		NumTotalAckedRetransmittableBytes: tr.TotalBytesAcked(),
		MinRttValid:                       true,
		MinRtt:                            rtt,
		AckedPackets:                      packets,
	})
	return last
}

var _ = Describe("end-to-end Startup growth", func() {
	It("eventually leaves Startup once bandwidth growth flattens out (S1)", func() {
		s := newTestSender(nil)
		tr := simulate.NewTracker()

		var next protocol.PacketNumber
		var sendTime protocol.Timestamp

		// A handful of rounds with strong growth, then several rounds
		// that undershoot startup_growth_target, should flip btlbw_found
		// and move the controller out of Startup.
		growthRounds := []int{10, 13, 17, 18, 19, 20, 21, 22}
		for _, packets := range growthRounds {
			next = driveRound(s, tr, next, packets, 1200, sendTime, 30*time.Millisecond)
			next++
			sendTime = sendTime.Add(30 * time.Millisecond)
		}

		Expect(s.phase).NotTo(Equal(PhaseStartup))
	})
})
