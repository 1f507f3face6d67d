package selection

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T, modes ModeStore) *Store {
	t.Helper()
	return NewStore(context.Background(), zerolog.Nop(), modes, "sess-1")
}

func ids(s *Store) map[BlockID]struct{} {
	return s.Selected()
}

func wantExactly(t *testing.T, s *Store, want ...BlockID) {
	t.Helper()
	got := ids(s)
	if len(got) != len(want) {
		t.Fatalf("expected %d selected, got %d (%v)", len(want), len(got), got)
	}
	for _, id := range want {
		if _, ok := got[id]; !ok {
			t.Fatalf("expected %q selected, got %v", id, got)
		}
	}
}

func TestToggleLeavesOthersUntouched(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddMany([]BlockID{"A", "B"})

	s.Toggle("C")

	wantExactly(t, s, "A", "B", "C")
	if !s.IsSelected("A") || !s.IsSelected("B") {
		t.Fatalf("toggle of C must not disturb A or B")
	}
}

func TestClearAllIdempotent(t *testing.T) {
	s := newTestStore(t, nil)
	var notified int
	s.Subscribe(func() { notified++ })

	s.ClearAll()
	if notified != 0 {
		t.Fatalf("clear on empty store must not notify, got %d", notified)
	}

	s.Add("A")
	notified = 0
	s.ClearAll()
	if notified != 1 {
		t.Fatalf("expected exactly one notification, got %d", notified)
	}
	if s.Count() != 0 {
		t.Fatalf("expected empty selection after clear")
	}
}

func TestInvertWithinUniverse(t *testing.T) {
	universe := []BlockID{"A", "B", "C", "D"}

	s := newTestStore(t, nil)
	s.AddMany([]BlockID{"A", "B"})
	s.Invert(universe)
	wantExactly(t, s, "C", "D")

	// An id outside the universe is dropped, not preserved.
	s = newTestStore(t, nil)
	s.AddMany([]BlockID{"A", "Z"})
	s.Invert(universe)
	wantExactly(t, s, "C", "D")
}

func TestModePersistenceRoundTrip(t *testing.T) {
	modes := NewMemoryModeStore()

	s := newTestStore(t, modes)
	if s.Mode() != ModeInclude {
		t.Fatalf("fresh store must default to include, got %q", s.Mode())
	}

	s.SetMode(context.Background(), ModeExclude)

	reloaded := newTestStore(t, modes)
	if reloaded.Mode() != ModeExclude {
		t.Fatalf("expected exclude after reload, got %q", reloaded.Mode())
	}
}

func TestParseModeUnrecognized(t *testing.T) {
	if ParseMode("") != ModeInclude {
		t.Fatalf("empty mode must parse as include")
	}
	if ParseMode("banana") != ModeInclude {
		t.Fatalf("unrecognized mode must parse as include")
	}
	if ParseMode("exclude") != ModeExclude {
		t.Fatalf("exclude must round-trip")
	}
}

func TestSetSelectedIdempotent(t *testing.T) {
	s := newTestStore(t, nil)
	var notified int
	s.Subscribe(func() { notified++ })

	s.SetSelected("A", true)
	s.SetSelected("A", true)
	if notified != 1 {
		t.Fatalf("expected one notification for repeated set, got %d", notified)
	}

	s.SetSelected("A", false)
	s.SetSelected("A", false)
	if notified != 2 {
		t.Fatalf("expected one notification for repeated unset, got %d", notified)
	}
}

func TestAddManyNotifiesOncePerCall(t *testing.T) {
	s := newTestStore(t, nil)
	var notified int
	s.Subscribe(func() { notified++ })

	s.AddMany([]BlockID{"A", "B", "C"})
	if notified != 1 {
		t.Fatalf("expected one notification for batch add, got %d", notified)
	}

	s.AddMany([]BlockID{"A", "B"})
	if notified != 1 {
		t.Fatalf("no-op batch add must not notify, got %d", notified)
	}
}

func TestSelectAllReplacesAndDedupes(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddMany([]BlockID{"X", "Y"})

	s.SelectAll([]BlockID{"A", "B", "A"})
	wantExactly(t, s, "A", "B")

	var notified int
	s.Subscribe(func() { notified++ })
	s.SelectAll([]BlockID{"B", "A"})
	if notified != 0 {
		t.Fatalf("selectAll with identical set must not notify, got %d", notified)
	}
}

func TestSubscribersNotifiedInRegistrationOrder(t *testing.T) {
	s := newTestStore(t, nil)
	var order []string
	s.Subscribe(func() { order = append(order, "first") })
	s.Subscribe(func() { order = append(order, "second") })

	s.Add("A")

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected registration-order delivery, got %v", order)
	}
}

func TestUnsubscribeSafeDuringNotificationAndRepeated(t *testing.T) {
	s := newTestStore(t, nil)

	var laterCalls int
	var unsubLater func()
	s.Subscribe(func() {
		// Deregistering a later subscriber mid-notification must not
		// crash and must suppress its delivery.
		unsubLater()
		unsubLater()
	})
	unsubLater = s.Subscribe(func() { laterCalls++ })

	s.Add("A")
	if laterCalls != 0 {
		t.Fatalf("subscriber removed during notification must not run, got %d calls", laterCalls)
	}

	s.Add("B")
	if laterCalls != 0 {
		t.Fatalf("removed subscriber must stay removed, got %d calls", laterCalls)
	}
}

func TestSelectedIsDefensiveCopy(t *testing.T) {
	s := newTestStore(t, nil)
	s.Add("A")

	got := s.Selected()
	delete(got, "A")
	got["B"] = struct{}{}

	if !s.IsSelected("A") || s.IsSelected("B") {
		t.Fatalf("mutating the returned set must not affect the store")
	}
}
