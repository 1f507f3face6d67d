// Package session owns the per-user wiring: exactly one selection store,
// one wizard controller, and one map-sync adapter per session, so no
// shadow copy of the selection can drift out of sync.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cameron-ship-it/Blocks-mapbox/internal/mapsurface"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/mapsync"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/selection"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/wizard"
)

// MapStep is the wizard step on which the map adapter accepts clicks.
const MapStep = "map"

type Session struct {
	ID      string
	Store   *selection.Store
	Wizard  *wizard.Controller
	Adapter *mapsync.Adapter
	Surface *mapsurface.Dataset

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// StepAction applies one wizard navigation action and re-gates the map
// adapter. Unknown actions and invalid targets leave the step unchanged.
func (s *Session) StepAction(action, target string) bool {
	s.mu.Lock()
	var changed bool
	switch action {
	case "next":
		changed = s.Wizard.Next()
	case "back":
		changed = s.Wizard.Back()
	case "goto":
		changed = s.Wizard.GoTo(target)
	case "reset":
		s.Wizard.Reset()
		changed = true
	}
	current := s.Wizard.Current()
	s.mu.Unlock()

	s.Adapter.SetActive(current == MapStep)
	return changed
}

func (s *Session) CurrentStep() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Wizard.Current()
}

func (s *Session) Close() {
	s.Adapter.Close()
}

// Builder constructs the session internals: store, wizard, surface, adapter.
type Builder func(ctx context.Context, id string) *Session

// Registry tracks live sessions and evicts idle ones.
type Registry struct {
	log   zerolog.Logger
	ttl   time.Duration
	build Builder

	mu       sync.Mutex
	sessions map[string]*Session
}

type Options struct {
	TTL time.Duration
}

func NewRegistry(log zerolog.Logger, opts Options, build Builder) *Registry {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		log:      log,
		ttl:      ttl,
		build:    build,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Create(ctx context.Context) *Session {
	id := uuid.NewString()
	s := r.build(ctx, id)
	s.ID = id
	s.Touch()
	s.Adapter.SetActive(s.CurrentStep() == MapStep)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.log.Info().Str("session_id", id).Msg("session created")
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

func (r *Registry) sweep(now time.Time) {
	var expired []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.seen()) > r.ttl {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
		r.log.Info().Str("session_id", s.ID).Msg("session expired")
	}
}
