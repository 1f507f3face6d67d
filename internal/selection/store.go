package selection

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// BlockID is the stable, opaque identity of one map polygon ("city block").
// It is always a canonical string; any numeric/string coercion against the
// map surface happens at the adapter boundary, never here.
type BlockID string

// Mode governs how downstream consumers interpret the selection set. The
// store records it but does not enforce it.
type Mode string

const (
	ModeInclude Mode = "include"
	ModeExclude Mode = "exclude"
)

// ParseMode maps a stored string onto a Mode, defaulting to include for
// anything absent or unrecognized.
func ParseMode(s string) Mode {
	if Mode(s) == ModeExclude {
		return ModeExclude
	}
	return ModeInclude
}

// ModeStore is the durable key-value contract backing Mode persistence.
// An empty value from Load means "not set".
type ModeStore interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
}

// Store is the single source of truth for which blocks are selected and in
// what mode. All mutation goes through its methods; Selected returns a
// defensive copy so no caller can bypass notification.
type Store struct {
	log   zerolog.Logger
	modes ModeStore
	key   string

	mu   sync.Mutex
	ids  map[BlockID]struct{}
	mode Mode

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func()
}

// NewStore builds an empty store and restores the persisted mode for key.
// A failed or empty restore degrades to ModeInclude; it is never an error.
func NewStore(ctx context.Context, log zerolog.Logger, modes ModeStore, key string) *Store {
	s := &Store{
		log:   log,
		modes: modes,
		key:   key,
		ids:   make(map[BlockID]struct{}),
		mode:  ModeInclude,
	}
	if modes != nil {
		v, err := modes.Load(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("mode restore failed, defaulting to include")
		} else {
			s.mode = ParseMode(v)
		}
	}
	return s
}

func (s *Store) IsSelected(id BlockID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// SetSelected sets membership for exactly one id. Idempotent: subscribers
// are notified only when membership actually changed.
func (s *Store) SetSelected(id BlockID, selected bool) {
	s.mu.Lock()
	_, ok := s.ids[id]
	changed := ok != selected
	if selected {
		s.ids[id] = struct{}{}
	} else {
		delete(s.ids, id)
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Toggle flips membership for one id.
func (s *Store) Toggle(id BlockID) {
	s.mu.Lock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()

	s.notify()
}

func (s *Store) Add(id BlockID) {
	s.AddMany([]BlockID{id})
}

// AddMany unions ids into the selection. One notification per call, and
// only if at least one id was new.
func (s *Store) AddMany(ids []BlockID) {
	s.mu.Lock()
	changed := false
	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			s.ids[id] = struct{}{}
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Store) Remove(id BlockID) {
	s.SetSelected(id, false)
}

// ClearAll empties the selection. Clearing an already-empty store does not
// notify.
func (s *Store) ClearAll() {
	s.mu.Lock()
	changed := len(s.ids) > 0
	if changed {
		s.ids = make(map[BlockID]struct{})
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// SelectAll replaces the selection with exactly ids (deduplicated).
func (s *Store) SelectAll(ids []BlockID) {
	next := make(map[BlockID]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	s.mu.Lock()
	changed := !sameSet(s.ids, next)
	if changed {
		s.ids = next
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Invert replaces the selection with universe minus the current selection.
// Ids selected but absent from universe are dropped: this is invert within
// the visible universe, not a global complement.
func (s *Store) Invert(universe []BlockID) {
	s.mu.Lock()
	next := make(map[BlockID]struct{}, len(universe))
	for _, id := range universe {
		if _, ok := s.ids[id]; !ok {
			next[id] = struct{}{}
		}
	}
	changed := !sameSet(s.ids, next)
	if changed {
		s.ids = next
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Selected returns a defensive copy of the selection set.
func (s *Store) Selected() map[BlockID]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[BlockID]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

// SortedIDs returns the selection as a sorted slice, for stable API output.
func (s *Store) SortedIDs() []BlockID {
	s.mu.Lock()
	out := make([]BlockID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode records the mode, persists it, and notifies. A persistence
// failure keeps the in-memory mode and is logged, not surfaced.
func (s *Store) SetMode(ctx context.Context, mode Mode) {
	mode = ParseMode(string(mode))

	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()

	if s.modes != nil {
		if err := s.modes.Save(ctx, s.key, string(mode)); err != nil {
			s.log.Warn().Err(err).Str("key", s.key).Msg("mode persist failed")
		}
	}
	s.notify()
}

// Subscribe registers fn to run after every state-changing operation, in
// registration order. The returned function deregisters it and is safe to
// call more than once, including from inside a notification.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	snapshot := make([]subscriber, len(s.subs))
	copy(snapshot, s.subs)
	s.subMu.Unlock()

	for _, sub := range snapshot {
		if !s.subscribed(sub.id) {
			continue
		}
		sub.fn()
	}
}

func (s *Store) subscribed(id int) bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, sub := range s.subs {
		if sub.id == id {
			return true
		}
	}
	return false
}

func sameSet(a, b map[BlockID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
