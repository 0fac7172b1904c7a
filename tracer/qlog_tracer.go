package tracer

import (
	"io"
	"sync"

	"github.com/francoispqt/gojay"
)

// qlogEvent is one line of the qlog-style structured trace: a name plus a
// flat set of fields, encoded without an intermediate map so the encoder
// never allocates beyond its own buffer. Grounded on the
// gojay.NewEncoder(buf).Encode(...) pattern exercised in
// qlog/packet_header_test.go against wire.ExtendedHeader.
type qlogEvent struct {
	name             string
	bytesInFlight    uint64
	congestionWindow uint64
	bandwidth        uint64
	smoothedRTTUs    int64
	state            string
}

var _ gojay.MarshalerJSONObject = (*qlogEvent)(nil)

func (e *qlogEvent) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("name", e.name)
	if e.state != "" {
		enc.StringKey("state", e.state)
	}
	if e.name == "network_statistics" {
		enc.Uint64Key("bytes_in_flight", e.bytesInFlight)
		enc.Uint64Key("congestion_window", e.congestionWindow)
		enc.Uint64Key("bandwidth", e.bandwidth)
		enc.Int64Key("smoothed_rtt_us", e.smoothedRTTUs)
	}
}

func (e *qlogEvent) IsNil() bool { return e == nil }

// qlogTracer writes one JSON object per line to an underlying writer,
// matching the newline-delimited event stream the rest of the qlog
// ecosystem expects.
type qlogTracer struct {
	mu  sync.Mutex
	w   io.Writer
	enc *gojay.Encoder
}

// NewQLogTracer returns a Tracer that encodes every callback as a
// newline-delimited JSON object written to w.
func NewQLogTracer(w io.Writer) Tracer {
	return &qlogTracer{w: w, enc: gojay.NewEncoder(w)}
}

func (q *qlogTracer) write(e *qlogEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.enc.Encode(e); err != nil {
		return
	}
	_, _ = q.w.Write([]byte("\n"))
}

func (q *qlogTracer) OnNetworkStatistics(stats NetworkStatistics) {
	q.write(&qlogEvent{
		name:             "network_statistics",
		bytesInFlight:    stats.BytesInFlight,
		congestionWindow: stats.CongestionWindow,
		bandwidth:        stats.BandwidthBytesPerSecond,
		smoothedRTTUs:    stats.SmoothedRTT.Microseconds(),
	})
}

func (q *qlogTracer) OnCongestionEvent(state string) {
	q.write(&qlogEvent{name: "congestion_event", state: state})
}

func (q *qlogTracer) OnRecoveryComplete() {
	q.write(&qlogEvent{name: "recovery_complete"})
}

func (q *qlogTracer) OnPersistentCongestion() {
	q.write(&qlogEvent{name: "persistent_congestion"})
}
