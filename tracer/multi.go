package tracer

// multiTracer fans every callback out to a fixed set of Tracers, in order.
type multiTracer struct {
	tracers []Tracer
}

// Multi combines several Tracers into one, so a connection can report to,
// say, zap and Prometheus at once without BBR knowing there's more than
// one sink.
func Multi(tracers ...Tracer) Tracer {
	nonNil := make([]Tracer, 0, len(tracers))
	for _, t := range tracers {
		if t != nil {
			nonNil = append(nonNil, t)
		}
	}
	if len(nonNil) == 0 {
		return Noop()
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}
	return &multiTracer{tracers: nonNil}
}

func (m *multiTracer) OnNetworkStatistics(stats NetworkStatistics) {
	for _, t := range m.tracers {
		t.OnNetworkStatistics(stats)
	}
}

func (m *multiTracer) OnCongestionEvent(state string) {
	for _, t := range m.tracers {
		t.OnCongestionEvent(state)
	}
}

func (m *multiTracer) OnRecoveryComplete() {
	for _, t := range m.tracers {
		t.OnRecoveryComplete()
	}
}

func (m *multiTracer) OnPersistentCongestion() {
	for _, t := range m.tracers {
		t.OnPersistentCongestion()
	}
}
