package congestion

import (
	"time"

	"github.com/lucas-clemente/quic-bbr/protocol"
)

const minRTTExpiration = 10 * time.Second

// minRTTTracker implements component C5: it remembers the smallest RTT
// sample seen in the last minRTTExpiration and flags when that estimate
// has gone stale, which is what drives BBR's periodic entry into ProbeRTT.
// Grounded on BbrCongestionControlUpdateMinRtt's handling of
// MinRttTimestampUs / MinRttExpired in msquic's src/core/bbr.c.
type minRTTTracker struct {
	valid     bool
	minRTT    time.Duration
	timestamp protocol.Timestamp
}

// update folds in a new RTT sample taken at time now. It replaces the
// estimate when the prior one was unset, stale, or beaten by sample, and
// reports expired (the rtt_sample_expired signal that fires the next
// ProbeRTT entry) only when a prior estimate existed and was stale.
func (m *minRTTTracker) update(sample time.Duration, now protocol.Timestamp) (expired bool) {
	expired = m.valid && m.timestamp.Add(minRTTExpiration) <= now
	if !m.valid || expired || sample < m.minRTT {
		m.minRTT = sample
		m.timestamp = now
		m.valid = true
	}
	return expired
}

// get returns the current min-RTT estimate, or 0 if none has been
// recorded yet.
func (m *minRTTTracker) get() time.Duration {
	return m.minRTT
}

func (m *minRTTTracker) isValid() bool {
	return m.valid
}

// refreshTimestamp re-anchors the expiry window to now without changing
// the estimate itself, used when ProbeRTT completes and validates the
// current minimum as still current.
func (m *minRTTTracker) refreshTimestamp(now protocol.Timestamp) {
	m.timestamp = now
}

// reset discards the current estimate, forcing the next sample to seed it
// unconditionally.
func (m *minRTTTracker) reset() {
	m.valid = false
	m.minRTT = 0
	m.timestamp = 0
}
