package metrics

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PacketReceived()
	m.PacketReceived()
	m.PacketDropped(ReasonSelf)
	m.PacketDropped(ReasonMalformed)
	m.PacketDropped(ReasonMalformed)
	m.PacketRelayed("lan-services")
	m.SendFailed("lan-iot")
	m.SetInterfaces(2, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Received))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dropped.WithLabelValues(ReasonSelf)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dropped.WithLabelValues(ReasonMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Relayed.WithLabelValues("lan-services")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SendErrors.WithLabelValues("lan-iot")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RelayInterfaces))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ObservedInterfaces))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PacketReceived()
	m.PacketDropped(ReasonFiltered)
	m.PacketRelayed("eth0")
	m.SendFailed("eth0")
	m.SetInterfaces(1, 1)
}

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.PacketReceived()

	router := NewRouter(reg, func() any {
		return map[string][]string{"relay": {"lan-home"}}
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mdns_repeater_packets_received_total 1")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/interfaces", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"lan-home"}, body["relay"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/interfaces", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, addr, http.NotFoundHandler())
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeListenError(t *testing.T) {
	err := Serve(context.Background(), "127.0.0.1:notaport", http.NotFoundHandler())
	assert.Error(t, err)
}
