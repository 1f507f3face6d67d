package wizard

import "testing"

func TestBoundariesAreNoOps(t *testing.T) {
	c := New(nil)

	if c.Back() {
		t.Fatalf("back on the first step must be a no-op")
	}
	if c.Current() != "budget" {
		t.Fatalf("expected to stay on budget, got %q", c.Current())
	}

	for c.Next() {
	}
	if c.Current() != "review" {
		t.Fatalf("expected terminal step review, got %q", c.Current())
	}
	if c.Next() {
		t.Fatalf("next on the terminal step must be a no-op")
	}
	if c.Current() != "review" {
		t.Fatalf("terminal step changed: %q", c.Current())
	}
}

func TestGoToUnknownStepIgnored(t *testing.T) {
	c := New(nil)
	c.Next()

	if c.GoTo("unknown-step") {
		t.Fatalf("unknown step must be rejected")
	}
	if c.Current() != "borough" {
		t.Fatalf("current step must be unchanged, got %q", c.Current())
	}
}

func TestGoToIsPermissive(t *testing.T) {
	c := New(nil)

	if !c.GoTo("review") {
		t.Fatalf("forward jump to a known step must be allowed")
	}
	if c.Current() != "review" {
		t.Fatalf("expected review, got %q", c.Current())
	}

	if !c.GoToIndex(1) {
		t.Fatalf("index jump must be allowed")
	}
	if c.GoToIndex(99) || c.GoToIndex(-1) {
		t.Fatalf("out-of-range index must be ignored")
	}
	if c.Current() != "borough" {
		t.Fatalf("expected borough, got %q", c.Current())
	}
}

func TestReset(t *testing.T) {
	c := New([]string{"one", "two", "three"})
	c.GoTo("three")
	c.Reset()
	if c.Current() != "one" {
		t.Fatalf("expected reset to first step, got %q", c.Current())
	}
}

func TestCanProceedDefersToValidator(t *testing.T) {
	c := New(nil)
	if !c.CanProceed(nil) {
		t.Fatalf("nil validator must allow")
	}
	if c.CanProceed(func(step string) bool { return step != "budget" }) {
		t.Fatalf("validator rejecting budget must block")
	}
	c.Next()
	if !c.CanProceed(func(step string) bool { return step != "budget" }) {
		t.Fatalf("validator must see the current step")
	}
}
