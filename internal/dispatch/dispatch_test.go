package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/groundctl/groundctl/internal/engine"
	"github.com/groundctl/groundctl/internal/models"
	"github.com/groundctl/groundctl/internal/store"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return engine.New(st)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedNotification(t *testing.T, eng *engine.Engine, target, content string) *models.Notification {
	t.Helper()
	n, err := eng.Notify(engine.NotifyParams{
		TargetAgent: target,
		SourceAgent: "system",
		Type:        models.NotifySystem,
		Content:     content,
	})
	if err != nil {
		t.Fatalf("Failed to create notification: %v", err)
	}
	return n
}

// flakyTransport fails for targets listed in failFor.
type flakyTransport struct {
	failFor   map[string]bool
	delivered []string
}

func (f *flakyTransport) Name() string { return "flaky" }

func (f *flakyTransport) Deliver(_ context.Context, n *models.Notification) error {
	if f.failFor[n.TargetAgent] {
		return errors.New("transport unavailable")
	}
	f.delivered = append(f.delivered, n.ID)
	return nil
}

func TestSweepDeliversPending(t *testing.T) {
	eng := newTestEngine(t)
	seedNotification(t, eng, "dev1", "first")
	seedNotification(t, eng, "dev2", "second")

	tr := &flakyTransport{}
	d := New(eng, tr, 0, discardLogger())

	count, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 delivered, got %d", count)
	}

	pending, err := eng.UndeliveredNotifications()
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending notifications, got %d", len(pending))
	}
}

func TestSweepLeavesFailedPending(t *testing.T) {
	eng := newTestEngine(t)
	good := seedNotification(t, eng, "dev1", "ok")
	bad := seedNotification(t, eng, "dev2", "unreachable")

	tr := &flakyTransport{failFor: map[string]bool{"dev2": true}}
	d := New(eng, tr, 0, discardLogger())

	count, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 delivered, got %d", count)
	}
	if len(tr.delivered) != 1 || tr.delivered[0] != good.ID {
		t.Errorf("Expected only %s delivered, got %v", good.ID, tr.delivered)
	}

	pending, err := eng.UndeliveredNotifications()
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != bad.ID {
		t.Errorf("Expected %s still pending, got %+v", bad.ID, pending)
	}

	// Transport recovers; next sweep drains the rest.
	tr.failFor = nil
	count, err = d.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 delivered on retry, got %d", count)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	eng := newTestEngine(t)
	seedNotification(t, eng, "dev1", "once")

	tr := &flakyTransport{}
	d := New(eng, tr, 0, discardLogger())

	if _, err := d.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	count, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected nothing on second sweep, got %d", count)
	}
	if len(tr.delivered) != 1 {
		t.Errorf("Expected exactly one handoff, got %d", len(tr.delivered))
	}
}

func TestLogTransportAlwaysSucceeds(t *testing.T) {
	tr := NewLogTransport(discardLogger())
	err := tr.Deliver(context.Background(), &models.Notification{
		ID: "n1", TargetAgent: "dev1", Type: models.NotifySystem, Content: "hi",
	})
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestWebhookTransport(t *testing.T) {
	var received models.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewWebhookTransport(srv.URL)
	n := &models.Notification{ID: "n1", TargetAgent: "dev1", Type: models.NotifyMention, Content: "ping"}
	if err := tr.Deliver(context.Background(), n); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if received.ID != "n1" || received.TargetAgent != "dev1" {
		t.Errorf("Webhook got wrong payload: %+v", received)
	}
}

func TestWebhookTransportRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewWebhookTransport(srv.URL)
	n := &models.Notification{ID: "n1", TargetAgent: "dev1", Type: models.NotifySystem}
	if err := tr.Deliver(context.Background(), n); err == nil {
		t.Error("Expected error for 500 response")
	}
}

func TestDispatcherLoop(t *testing.T) {
	eng := newTestEngine(t)
	seedNotification(t, eng, "dev1", "looped")

	tr := &flakyTransport{}
	d := New(eng, tr, 50*time.Millisecond, discardLogger())
	d.Start()
	defer d.Stop()

	deadline := time.After(2 * time.Second)
	for {
		pending, err := eng.UndeliveredNotifications()
		if err != nil {
			t.Fatalf("Failed to list pending: %v", err)
		}
		if len(pending) == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("Dispatcher loop never delivered the notification")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
