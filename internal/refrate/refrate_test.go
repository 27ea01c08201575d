package refrate

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const hermesPayload = `{"parsed":[{"price":{"price":"99985000","expo":-8}}]}`

func waitForKnown(t *testing.T, p *Provider, timeout time.Duration) float64 {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if rate, ok := p.Rate(); ok {
			return rate
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("rate never became known")
	return 0
}

func TestRateUnknownBeforeFirstFetch(t *testing.T) {
	p := New("http://127.0.0.1:0", time.Hour)
	if _, ok := p.Rate(); ok {
		t.Fatalf("rate must be unknown before any fetch")
	}
}

func TestRateKnownAfterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(hermesPayload))
	}))
	defer srv.Close()

	p := New(srv.URL, time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	rate := waitForKnown(t, p, 5*time.Second)
	want := 99985000 * math.Pow(10, -8)
	if rate != want {
		t.Fatalf("rate = %v, want %v", rate, want)
	}
}

func TestFetchFailureKeepsPreviousRate(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(hermesPayload))
	}))
	defer srv.Close()

	p := New(srv.URL, 20*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop()

	first := waitForKnown(t, p, 5*time.Second)

	fail.Store(true)
	time.Sleep(100 * time.Millisecond)

	rate, ok := p.Rate()
	if !ok || rate != first {
		t.Fatalf("rate after failures = %v, %v; want stale %v", rate, ok, first)
	}
}

func TestMalformedPayloadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"parsed":[]}`))
	}))
	defer srv.Close()

	p := New(srv.URL, time.Hour)
	p.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	p.Stop()

	if _, ok := p.Rate(); ok {
		t.Fatalf("empty parsed list must not produce a known rate")
	}
}

func TestDefaultURLWhenEmpty(t *testing.T) {
	p := New("", time.Hour)
	if p.url != DefaultURL {
		t.Fatalf("url = %q, want default", p.url)
	}
}
