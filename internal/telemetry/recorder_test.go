package telemetry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewRecorder(reg)

	r.ObservePull("metrics", nil)
	r.ObservePull("metrics", nil)
	r.ObservePull("config", errors.New("boom"))
	r.ObservePushEvent("metrics_updated")
	r.ObserveConnection(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.pulls.WithLabelValues("metrics", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pulls.WithLabelValues("config", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pushEvents.WithLabelValues("metrics_updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.connected))

	r.ObserveConnection(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.connected))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("disconnected")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 4)
}

func TestRecorder_NilIsNoOp(t *testing.T) {
	var r *Recorder
	r.ObservePull("metrics", nil)
	r.ObservePushEvent("connect")
	r.ObserveConnection(true)
}

func TestServe_ExposesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	NewRecorder(reg).ObservePull("logs", nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveListener(ctx, ln, reg, zerolog.Nop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `devpanel_pulls_total{outcome="success",resource="logs"} 1`), string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
