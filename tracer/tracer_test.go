package tracer

import (
	"bytes"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNoopTracerDiscardsEverything(t *testing.T) {
	tr := Noop()
	tr.OnNetworkStatistics(NetworkStatistics{})
	tr.OnCongestionEvent("startup")
	tr.OnRecoveryComplete()
	tr.OnPersistentCongestion()
}

func TestOrNoopFallsBackOnNil(t *testing.T) {
	if OrNoop(nil) == nil {
		t.Fatal("OrNoop(nil) should never return nil")
	}
}

func TestMultiFansOutToEveryTracer(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a := NewZapTracer(zap.New(core))

	var bCalls int
	b := &countingTracer{}
	m := Multi(a, b)

	m.OnCongestionEvent("drain")
	if logs.Len() != 1 {
		t.Errorf("expected 1 log entry, got %d", logs.Len())
	}
	bCalls = b.congestionEvents
	if bCalls != 1 {
		t.Errorf("expected the second tracer to also observe the call, got %d", bCalls)
	}
}

func TestMultiSkipsNilTracers(t *testing.T) {
	b := &countingTracer{}
	m := Multi(nil, b)
	m.OnRecoveryComplete()
	if b.recoveryCompletes != 1 {
		t.Error("Multi should still dispatch to the non-nil tracer")
	}
}

func TestQLogTracerWritesNewlineDelimitedJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewQLogTracer(&buf)
	tr.OnNetworkStatistics(NetworkStatistics{
		BytesInFlight:           1000,
		CongestionWindow:        50000,
		BandwidthBytesPerSecond: 1_000_000,
		SmoothedRTT:             30 * time.Millisecond,
	})
	if buf.Len() == 0 {
		t.Fatal("expected the qlog tracer to write something")
	}
	if buf.Bytes()[buf.Len()-1] != '\n' {
		t.Error("expected a trailing newline after each event")
	}
}

type countingTracer struct {
	congestionEvents  int
	recoveryCompletes int
}

func (c *countingTracer) OnNetworkStatistics(NetworkStatistics) {}
func (c *countingTracer) OnCongestionEvent(string)               { c.congestionEvents++ }
func (c *countingTracer) OnRecoveryComplete()                    { c.recoveryCompletes++ }
func (c *countingTracer) OnPersistentCongestion()                {}
