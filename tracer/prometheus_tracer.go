package tracer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// prometheusTracer exports BBR's reporting callbacks as Prometheus
// gauges and counters. Grounded on the promauto.NewCounterVec /
// promauto.NewGaugeVec construction pattern in
// twogc-quic-test/server/prometheus_exporter.go.
type prometheusTracer struct {
	bytesInFlight    prometheus.Gauge
	congestionWindow prometheus.Gauge
	bandwidth        prometheus.Gauge
	smoothedRTT      prometheus.Gauge

	congestionEvents *prometheus.CounterVec
	recoveryComplete prometheus.Counter
	persistentCongestion prometheus.Counter
}

// NewPrometheusTracer registers a fresh set of BBR gauges and counters
// against reg. Pass prometheus.DefaultRegisterer to use the global
// registry.
func NewPrometheusTracer(reg prometheus.Registerer) Tracer {
	factory := promauto.With(reg)
	return &prometheusTracer{
		bytesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bbr_bytes_in_flight",
			Help: "Bytes currently outstanding on the path.",
		}),
		congestionWindow: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bbr_congestion_window_bytes",
			Help: "Current effective congestion window.",
		}),
		bandwidth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bbr_bandwidth_bytes_per_second",
			Help: "Current windowed-max bandwidth estimate.",
		}),
		smoothedRTT: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bbr_smoothed_rtt_seconds",
			Help: "Smoothed round-trip time as reported by the path estimator.",
		}),
		congestionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bbr_congestion_events_total",
			Help: "Congestion phase transitions, labeled by the entered state.",
		}, []string{"state"}),
		recoveryComplete: factory.NewCounter(prometheus.CounterOpts{
			Name: "bbr_recovery_complete_total",
			Help: "Number of times loss recovery completed.",
		}),
		persistentCongestion: factory.NewCounter(prometheus.CounterOpts{
			Name: "bbr_persistent_congestion_total",
			Help: "Number of persistent-congestion signals observed.",
		}),
	}
}

func (p *prometheusTracer) OnNetworkStatistics(stats NetworkStatistics) {
	p.bytesInFlight.Set(float64(stats.BytesInFlight))
	p.congestionWindow.Set(float64(stats.CongestionWindow))
	p.bandwidth.Set(float64(stats.BandwidthBytesPerSecond))
	p.smoothedRTT.Set(stats.SmoothedRTT.Seconds())
}

func (p *prometheusTracer) OnCongestionEvent(state string) {
	p.congestionEvents.WithLabelValues(state).Inc()
}

func (p *prometheusTracer) OnRecoveryComplete() {
	p.recoveryComplete.Inc()
}

func (p *prometheusTracer) OnPersistentCongestion() {
	p.persistentCongestion.Inc()
}
