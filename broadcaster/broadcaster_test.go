package broadcaster

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mjdevaccount/market-data-store/feedback"
	"github.com/mjdevaccount/market-data-store/secret"
)

// countingProvider resolves every ref to the same value, counting how many
// times Resolve was actually invoked, to verify singleflight dedup.
type countingProvider struct {
	calls atomic.Int32
	value string
}

func (p *countingProvider) Name() string { return "vault" }
func (p *countingProvider) Resolve(ctx context.Context, ref string) (string, error) {
	p.calls.Add(1)
	return p.value, nil
}
func (p *countingProvider) Close() error { return nil }

func testEvent() feedback.Event {
	return feedback.Event{
		CoordID:   "coord-1",
		QueueSize: 90,
		Capacity:  100,
		Level:     feedback.Hard,
		Source:    feedback.Source,
		Timestamp: 1700000000,
	}
}

func TestHTTPBroadcaster_DeliversEventBody(t *testing.T) {
	received := make(chan feedback.Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev feedback.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode body: %v", err)
		}
		received <- ev
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := New(Config{Endpoint: srv.URL, Timeout: time.Second, MaxRetries: 1, BackoffBase: time.Millisecond})
	bus := feedback.NewBus(nil)
	if err := b.Start(bus); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	bus.Publish(context.Background(), testEvent())

	select {
	case ev := <-received:
		if ev.CoordID != "coord-1" || ev.Level != feedback.Hard {
			t.Errorf("received event = %+v, want coord-1/hard", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never received the event")
	}
}

func TestHTTPBroadcaster_SignsBodyWithHMAC(t *testing.T) {
	secret := []byte("shh")
	var gotSig string
	var gotBody []byte
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Signature-256")
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	defer srv.Close()

	b := New(Config{Endpoint: srv.URL, Timeout: time.Second, HMACSecret: secret})
	bus := feedback.NewBus(nil)
	_ = b.Start(bus)
	defer b.Stop()

	bus.Publish(context.Background(), testEvent())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never received the event")
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(gotBody)
	want := hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("X-Signature-256 = %q, want %q", gotSig, want)
	}
}

func TestHTTPBroadcaster_SignsBodyWithResolvedSecretRef(t *testing.T) {
	provider := &countingProvider{value: "ref-secret"}
	resolver := secret.NewResolver(false, provider)

	var gotSig string
	var gotBody []byte
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Signature-256")
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	defer srv.Close()

	b := New(Config{
		Endpoint:       srv.URL,
		Timeout:        time.Second,
		HMACSecretRef:  "secretref:vault:webhook-key",
		SecretResolver: resolver,
	})
	bus := feedback.NewBus(nil)
	_ = b.Start(bus)
	defer b.Stop()

	bus.Publish(context.Background(), testEvent())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never received the event")
	}

	mac := hmac.New(sha256.New, []byte("ref-secret"))
	mac.Write(gotBody)
	want := hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("X-Signature-256 = %q, want %q", gotSig, want)
	}
	if provider.calls.Load() != 1 {
		t.Errorf("provider.Resolve calls = %d, want 1", provider.calls.Load())
	}
}

func TestHTTPBroadcaster_DirectHMACSecretTakesPrecedenceOverRef(t *testing.T) {
	provider := &countingProvider{value: "should-not-be-used"}
	resolver := secret.NewResolver(false, provider)

	b := New(Config{
		HMACSecret:     []byte("direct"),
		HMACSecretRef:  "secretref:vault:webhook-key",
		SecretResolver: resolver,
	})

	got := b.resolveHMACSecret(context.Background())
	if string(got) != "direct" {
		t.Errorf("resolveHMACSecret() = %q, want %q", got, "direct")
	}
	if provider.calls.Load() != 0 {
		t.Errorf("provider.Resolve calls = %d, want 0 (direct secret must short-circuit)", provider.calls.Load())
	}
}

func TestHTTPBroadcaster_RetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := New(Config{Endpoint: srv.URL, Timeout: time.Second, MaxRetries: 3, BackoffBase: time.Millisecond})
	bus := feedback.NewBus(nil)
	_ = b.Start(bus)

	bus.Publish(context.Background(), testEvent())
	b.Stop() // waits for in-flight delivery to finish

	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestHTTPBroadcaster_DropsAfterPersistentFailure(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := New(Config{Endpoint: srv.URL, Timeout: time.Second, MaxRetries: 2, BackoffBase: time.Millisecond})
	bus := feedback.NewBus(nil)
	_ = b.Start(bus)

	bus.Publish(context.Background(), testEvent())
	b.Stop()

	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3 (1 + MaxRetries)", got)
	}
}

func TestHTTPBroadcaster_EmptyEndpointIsNoop(t *testing.T) {
	b := New(Config{})
	bus := feedback.NewBus(nil)
	if err := b.Start(bus); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	if bus.Len() != 0 {
		t.Errorf("bus.Len() = %d, want 0 (no-op must not subscribe)", bus.Len())
	}
}

func TestHTTPBroadcaster_InvalidEndpointErrors(t *testing.T) {
	b := New(Config{Endpoint: "not a url"})
	bus := feedback.NewBus(nil)
	if err := b.Start(bus); err == nil {
		t.Fatal("Start() with invalid endpoint, want error")
	}
}

func TestHTTPBroadcaster_StartIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := New(Config{Endpoint: srv.URL})
	bus := feedback.NewBus(nil)
	if err := b.Start(bus); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if err := b.Start(bus); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if bus.Len() != 1 {
		t.Errorf("bus.Len() = %d, want 1 (idempotent Start must not double-subscribe)", bus.Len())
	}
	b.Stop()
}
