package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cameron-ship-it/Blocks-mapbox/internal/mapsync"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/selection"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/wizard"
)

func testBuilder() Builder {
	return func(ctx context.Context, id string) *Session {
		store := selection.NewStore(ctx, zerolog.Nop(), nil, id)
		return &Session{
			Store:   store,
			Wizard:  wizard.New(nil),
			Adapter: mapsync.New(zerolog.Nop(), nil, store, nil, mapsync.Options{}),
		}
	}
}

func TestCreateAndGet(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), Options{TTL: time.Minute}, testBuilder())

	s := r.Create(context.Background())
	if s.ID == "" {
		t.Fatalf("expected a session id")
	}
	if s.CurrentStep() != "budget" {
		t.Fatalf("expected initial step budget, got %q", s.CurrentStep())
	}

	got, ok := r.Get(s.ID)
	if !ok || got != s {
		t.Fatalf("expected to find the created session")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Fatalf("unknown id must not resolve")
	}
}

func TestStepActionGatesAdapter(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), Options{TTL: time.Minute}, testBuilder())
	s := r.Create(context.Background())

	if s.Adapter.Active() {
		t.Fatalf("adapter must be inactive off the map step")
	}

	if !s.StepAction("goto", "map") {
		t.Fatalf("goto map must succeed")
	}
	if !s.Adapter.Active() {
		t.Fatalf("adapter must activate on the map step")
	}

	if s.StepAction("goto", "unknown-step") {
		t.Fatalf("unknown step must be ignored")
	}
	if s.CurrentStep() != "map" || !s.Adapter.Active() {
		t.Fatalf("ignored goto must leave step and gate unchanged")
	}

	s.StepAction("back", "")
	if s.Adapter.Active() {
		t.Fatalf("adapter must deactivate when leaving the map step")
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), Options{TTL: 10 * time.Millisecond}, testBuilder())
	s := r.Create(context.Background())

	r.sweep(time.Now().Add(time.Hour))

	if r.Len() != 0 {
		t.Fatalf("expected idle session evicted, have %d", r.Len())
	}
	if _, ok := r.Get(s.ID); ok {
		t.Fatalf("evicted session must not resolve")
	}
}

func TestRemoveClosesSession(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), Options{TTL: time.Minute}, testBuilder())
	s := r.Create(context.Background())

	r.Remove(s.ID)
	if r.Len() != 0 {
		t.Fatalf("expected empty registry after remove")
	}
	// Closing again through the session must be safe.
	s.Close()
}
