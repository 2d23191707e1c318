package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorReportsRecordedState(t *testing.T) {
	c := New()
	c.SetConnected(true)
	c.SetMode(true)
	c.RecordReconnect()
	c.RecordDisconnect()
	c.RecordEvent("seek")

	const want = `
# HELP crocket_connected 1 if the editor connection is up, 0 otherwise.
# TYPE crocket_connected gauge
crocket_connected 1
# HELP crocket_disconnects_total Total disconnect events observed.
# TYPE crocket_disconnects_total counter
crocket_disconnects_total 1
# HELP crocket_events_total Total one-shot protocol events by kind.
# TYPE crocket_events_total counter
crocket_events_total{event="seek"} 1
# HELP crocket_mode 0 = player mode, 1 = client mode.
# TYPE crocket_mode gauge
crocket_mode 1
# HELP crocket_reconnects_total Total successful handshakes completed.
# TYPE crocket_reconnects_total counter
crocket_reconnects_total 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want)); err != nil {
		t.Fatalf("unexpected collector output: %v", err)
	}
}

func TestCollectorDefaultsToZero(t *testing.T) {
	c := New()

	const want = `
# HELP crocket_connected 1 if the editor connection is up, 0 otherwise.
# TYPE crocket_connected gauge
crocket_connected 0
# HELP crocket_mode 0 = player mode, 1 = client mode.
# TYPE crocket_mode gauge
crocket_mode 0
# HELP crocket_reconnects_total Total successful handshakes completed.
# TYPE crocket_reconnects_total counter
crocket_reconnects_total 0
# HELP crocket_disconnects_total Total disconnect events observed.
# TYPE crocket_disconnects_total counter
crocket_disconnects_total 0
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"crocket_connected", "crocket_mode", "crocket_reconnects_total", "crocket_disconnects_total",
	); err != nil {
		t.Fatalf("unexpected collector output: %v", err)
	}
}

func TestRecordEventAccumulatesPerKind(t *testing.T) {
	c := New()
	c.RecordEvent("save")
	c.RecordEvent("save")
	c.RecordEvent("action")

	got := testutil.CollectAndCount(c, "crocket_events_total")
	if got != 2 {
		t.Fatalf("CollectAndCount(crocket_events_total) = %d, want 2 distinct label series", got)
	}
}
