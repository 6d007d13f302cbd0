package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestMonitor() *HealthMonitor {
	return &HealthMonitor{
		client:    &http.Client{Timeout: 2 * time.Second},
		grace:     time.Millisecond,
		interval:  5 * time.Millisecond,
		threshold: 3,
	}
}

func healthServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestCheckOnceHealthy(t *testing.T) {
	server := healthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","bloomberg":{"available":true}}`))
	})

	hm := newTestMonitor()
	hm.status.ConsecutiveFailures = 2

	if !hm.CheckOnce(context.Background(), server.URL+"/health") {
		t.Fatal("expected healthy result")
	}
	status := hm.Status()
	if status.ConsecutiveFailures != 0 {
		t.Errorf("success must reset consecutive failures, got %d", status.ConsecutiveFailures)
	}
	if status.LastBackendStatus != "ok" {
		t.Errorf("unexpected backend status %q", status.LastBackendStatus)
	}
	if status.BloombergAvailable == nil || !*status.BloombergAvailable {
		t.Error("expected bloomberg available to be recorded as true")
	}
}

func TestCheckOnceDegradedBackendIsStillHealthy(t *testing.T) {
	// 200 + valid JSON means the tunnel chain works even if the backend
	// reports its upstream as unavailable
	server := healthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"unavailable","bloomberg":{"available":false}}`))
	})

	hm := newTestMonitor()
	if !hm.CheckOnce(context.Background(), server.URL+"/health") {
		t.Fatal("valid JSON at 200 must count as a reachable bridge")
	}
	status := hm.Status()
	if status.BloombergAvailable == nil || *status.BloombergAvailable {
		t.Error("expected bloomberg available to be recorded as false")
	}
}

func TestCheckOnceHTMLAt200IsFailure(t *testing.T) {
	server := healthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>You are about to visit...</body></html>"))
	})

	hm := newTestMonitor()
	if hm.CheckOnce(context.Background(), server.URL+"/health") {
		t.Fatal("an HTML interstitial at 200 must be classified as a failure")
	}
	if hm.Status().ConsecutiveFailures != 1 {
		t.Errorf("expected 1 consecutive failure, got %d", hm.Status().ConsecutiveFailures)
	}
}

func TestCheckOnceHTMLBodyWithJSONContentType(t *testing.T) {
	server := healthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("<html>not json</html>"))
	})

	hm := newTestMonitor()
	if hm.CheckOnce(context.Background(), server.URL+"/health") {
		t.Fatal("a non-JSON body must be classified as a failure")
	}
}

func TestCheckOnceNon200(t *testing.T) {
	server := healthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
	})

	hm := newTestMonitor()
	if hm.CheckOnce(context.Background(), server.URL+"/health") {
		t.Fatal("a 503 must be classified as a failure")
	}
}

func TestCheckOnceCountsPastThreshold(t *testing.T) {
	server := healthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	hm := newTestMonitor()
	for i := 0; i < 5; i++ {
		hm.CheckOnce(context.Background(), server.URL+"/health")
	}
	// counting continues past the escalation threshold, the loop never stops
	if got := hm.Status().ConsecutiveFailures; got != 5 {
		t.Errorf("expected 5 consecutive failures, got %d", got)
	}
}

func TestMonitorLoopExitsWhenProcessDies(t *testing.T) {
	var probes atomic.Int32
	server := healthServer(t, func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	hm := newTestMonitor()
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		hm.MonitorLoop(context.Background(), server.URL+"/health", done)
		close(finished)
	}()

	time.Sleep(30 * time.Millisecond)
	close(done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("monitor loop did not exit after the process-done signal")
	}
	if probes.Load() == 0 {
		t.Error("expected at least one probe before the process exited")
	}
}

func TestMonitorLoopExitsOnContextCancel(t *testing.T) {
	server := healthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	hm := newTestMonitor()
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		// nil done channel: adopted tunnels have no subprocess to wait on
		hm.MonitorLoop(ctx, server.URL+"/health", nil)
		close(finished)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("monitor loop did not exit on context cancel")
	}
}
