// Package mapsync bridges the selection store to the external map surface.
// It is the only code allowed to call the surface's rendering and query
// APIs, and the only place ids are coerced between surface types and the
// canonical string BlockID.
package mapsync

import (
	"strconv"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/cameron-ship-it/Blocks-mapbox/internal/geo"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/mapsurface"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/metrics"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/selection"
)

type Options struct {
	Source      string // vector source holding block polygons
	SourceLayer string // layer context id for per-feature highlight state
	BlockLayer  string // rendered layer clicks are hit-tested against
	BlockIDProp string // property fallback when no promoted feature id exists
	GeoIDProp   string // second property fallback
}

// Adapter keeps map highlight state consistent with one selection store.
// On store changes it pushes only the per-id diff; after a source reload it
// replays the entire selection, because the surface drops transient
// feature state on reload.
type Adapter struct {
	log     zerolog.Logger
	surface mapsurface.Surface
	store   *selection.Store
	metrics *metrics.Metrics
	opts    Options

	mu      sync.Mutex
	active  bool
	painted map[selection.BlockID]struct{}

	unsubscribe func()
}

func New(log zerolog.Logger, surface mapsurface.Surface, store *selection.Store, m *metrics.Metrics, opts Options) *Adapter {
	if opts.Source == "" {
		opts.Source = "blocks"
	}
	if opts.SourceLayer == "" {
		opts.SourceLayer = opts.Source
	}
	if opts.BlockLayer == "" {
		opts.BlockLayer = "blocks-fill"
	}
	if opts.BlockIDProp == "" {
		opts.BlockIDProp = "block_id"
	}
	if opts.GeoIDProp == "" {
		opts.GeoIDProp = "geoid"
	}

	a := &Adapter{
		log:     log,
		surface: surface,
		store:   store,
		metrics: m,
		opts:    opts,
		painted: make(map[selection.BlockID]struct{}),
	}

	if surface != nil {
		surface.OnClick(opts.BlockLayer, a.HandleClick)
		surface.OnSourceData(a.Replay)
	}
	a.unsubscribe = store.Subscribe(a.repaint)

	return a
}

// Close detaches the adapter from the store. Safe to call more than once.
func (a *Adapter) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

// SetActive gates click handling. The surrounding wizard enables the
// adapter only while the user is on the map step.
func (a *Adapter) SetActive(active bool) {
	a.mu.Lock()
	a.active = active
	a.mu.Unlock()
}

func (a *Adapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *Adapter) ready() bool {
	return a.surface != nil && a.surface.Ready()
}

// HandleClick hit-tests a click and toggles exactly one block: the topmost
// matching polygon. A click that resolves to no feature, or to a feature
// with no derivable stable id, changes nothing.
func (a *Adapter) HandleClick(at orb.Point) {
	if !a.Active() || !a.ready() {
		return
	}

	features := a.surface.QueryRenderedFeatures(at, []string{a.opts.BlockLayer})
	if len(features) == 0 {
		return
	}

	id := a.blockID(features[0])
	if id == "" {
		a.metrics.IncClickIgnored()
		a.log.Warn().
			Float64("lng", at[0]).
			Float64("lat", at[1]).
			Msg("clicked feature has no stable id, ignoring")
		return
	}

	a.metrics.IncSelectionMutation("toggle")
	a.store.Toggle(id)
}

// SelectAllVisible replaces the selection with every candidate block the
// surface currently has loaded.
func (a *Adapter) SelectAllVisible() {
	if !a.ready() {
		return
	}
	a.metrics.IncSelectionMutation("select_all")
	a.store.SelectAll(a.visibleIDs())
}

// InvertVisible inverts the selection within the currently loaded universe.
func (a *Adapter) InvertVisible() {
	if !a.ready() {
		return
	}
	a.metrics.IncSelectionMutation("invert")
	a.store.Invert(a.visibleIDs())
}

// ClearAll empties the selection.
func (a *Adapter) ClearAll() {
	if !a.ready() {
		return
	}
	a.metrics.IncSelectionMutation("clear")
	a.store.ClearAll()
}

// VisibleBlocks returns the surface's current candidate blocks with
// canonical ids, for the spatial filter. Features with no derivable id are
// omitted.
func (a *Adapter) VisibleBlocks() []geo.CandidateBlock {
	if !a.ready() {
		return nil
	}
	features := a.surface.QuerySourceFeatures(a.opts.Source, a.opts.SourceLayer)
	out := make([]geo.CandidateBlock, 0, len(features))
	for _, f := range features {
		id := a.blockID(f)
		if id == "" {
			continue
		}
		out = append(out, geo.CandidateBlock{ID: id, Geometry: f.Geometry})
	}
	return out
}

func (a *Adapter) visibleIDs() []selection.BlockID {
	features := a.surface.QuerySourceFeatures(a.opts.Source, a.opts.SourceLayer)
	out := make([]selection.BlockID, 0, len(features))
	for _, f := range features {
		if id := a.blockID(f); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// repaint pushes highlight updates for just the ids whose membership
// changed since the last paint. Other features are never touched.
func (a *Adapter) repaint() {
	if !a.ready() {
		return
	}

	current := a.store.Selected()

	a.mu.Lock()
	var added, removed []selection.BlockID
	for id := range current {
		if _, ok := a.painted[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range a.painted {
		if _, ok := current[id]; !ok {
			removed = append(removed, id)
		}
	}
	a.painted = current
	a.mu.Unlock()

	for _, id := range added {
		a.surface.SetFeatureHighlight(a.opts.Source, a.opts.SourceLayer, string(id), true)
	}
	for _, id := range removed {
		a.surface.SetFeatureHighlight(a.opts.Source, a.opts.SourceLayer, string(id), false)
	}
}

// Replay pushes highlight state for the entire current selection. Invoked
// after every source-data reload; idempotent, so repeated reload events are
// harmless.
func (a *Adapter) Replay() {
	if !a.ready() {
		return
	}

	current := a.store.Selected()

	a.mu.Lock()
	a.painted = current
	a.mu.Unlock()

	for id := range current {
		a.surface.SetFeatureHighlight(a.opts.Source, a.opts.SourceLayer, string(id), true)
	}
	a.metrics.IncHighlightReplay()
}

// blockID derives the canonical id for a feature: the promoted feature id
// when present, then the block-id property, then the geo-id property.
// Empty means the feature is unusable for selection.
func (a *Adapter) blockID(f mapsurface.Feature) selection.BlockID {
	if id := canonicalID(f.ID); id != "" {
		return selection.BlockID(id)
	}
	if f.Properties != nil {
		if id := canonicalID(f.Properties[a.opts.BlockIDProp]); id != "" {
			return selection.BlockID(id)
		}
		if id := canonicalID(f.Properties[a.opts.GeoIDProp]); id != "" {
			return selection.BlockID(id)
		}
	}
	return ""
}

// canonicalID renders a surface-typed id as a canonical string. JSON-borne
// numeric ids arrive as float64; vector sources report ints.
func canonicalID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	default:
		return ""
	}
}
