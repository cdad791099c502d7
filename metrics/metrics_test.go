package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcnkl/settle/debounce"
)

func TestObserver_CountsDebounceEvents(t *testing.T) {
	m := New()

	d, err := debounce.New(20*time.Millisecond, debounce.WithObserver(m.Observer("test")))
	require.NoError(t, err)
	defer d.Dispose()

	done := make(chan struct{})
	require.NoError(t, d.Debounce(func() {}))
	require.NoError(t, d.Debounce(func() {}))
	require.NoError(t, d.Debounce(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("action did not run")
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Debounce.Scheduled.WithLabelValues("test")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Debounce.Superseded.WithLabelValues("test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Debounce.Fired.WithLabelValues("test")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Debounce.Fired.WithLabelValues("lint")))
}

func TestObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun("test", "success", time.Second)
	m.ObserveRun("test", "failure", 2*time.Second)
	m.ObserveRun("test", "skipped", 0)
	m.ObserveRun("lint", "success", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("test", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("test", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("test", "skipped")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RunDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRun("test", "success", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `settle_runs_total{status="success",task="test"} 1`)
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := New()
	m.ObserveRun("test", "success", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Serve(ctx, addr)
	}()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, strings.Contains(body, "settle_runs_total"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = New().Serve(context.Background(), ln.Addr().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to serve metrics")
}
