package mapsurface

import (
	"fmt"
	"os"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog"
)

// Dataset is a Surface backed by a block FeatureCollection. It stands in
// for a browser-side map: hit-testing is planar point-in-polygon over the
// loaded polygons, and highlight state is transient; a Reload drops it,
// exactly like a tile reload on a real surface.
//
// One Dataset is constructed per session so highlight state never leaks
// across users; the loaded features are shared.
type Dataset struct {
	log         zerolog.Logger
	source      string
	sourceLayer string
	features    []Feature

	mu         sync.Mutex
	highlights map[string]bool
	clicks     map[string][]func(at orb.Point)
	sourceData []func()
}

func NewDataset(log zerolog.Logger, source, sourceLayer string, fc *geojson.FeatureCollection) *Dataset {
	d := &Dataset{
		log:         log,
		source:      source,
		sourceLayer: sourceLayer,
		highlights:  make(map[string]bool),
		clicks:      make(map[string][]func(at orb.Point)),
	}
	if fc != nil {
		d.features = make([]Feature, 0, len(fc.Features))
		for _, f := range fc.Features {
			if f == nil || f.Geometry == nil {
				continue
			}
			d.features = append(d.features, Feature{
				ID:         f.ID,
				Properties: map[string]any(f.Properties),
				Geometry:   f.Geometry,
			})
		}
	}
	return d
}

// LoadBlocks reads a block FeatureCollection from a GeoJSON file.
func LoadBlocks(path string) (*geojson.FeatureCollection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blocks file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode blocks file: %w", err)
	}
	return fc, nil
}

func (d *Dataset) Ready() bool {
	return d != nil && len(d.features) > 0
}

func (d *Dataset) QuerySourceFeatures(source, sourceLayer string) []Feature {
	if d == nil || source != d.source {
		return nil
	}
	out := make([]Feature, len(d.features))
	copy(out, d.features)
	return out
}

// QueryRenderedFeatures returns hits topmost-first. Later features in the
// collection draw on top, so matches come back in reverse dataset order.
func (d *Dataset) QueryRenderedFeatures(at orb.Point, layers []string) []Feature {
	if d == nil {
		return nil
	}
	var out []Feature
	for i := len(d.features) - 1; i >= 0; i-- {
		f := d.features[i]
		if containsPoint(f.Geometry, at) {
			out = append(out, f)
		}
	}
	return out
}

func (d *Dataset) SetFeatureHighlight(source, sourceLayer, featureID string, selected bool) {
	if d == nil || featureID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if selected {
		d.highlights[featureID] = true
	} else {
		delete(d.highlights, featureID)
	}
}

// Highlighted returns a copy of the current highlight state.
func (d *Dataset) Highlighted() map[string]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]bool, len(d.highlights))
	for id, v := range d.highlights {
		out[id] = v
	}
	return out
}

func (d *Dataset) OnClick(layer string, handler func(at orb.Point)) {
	if d == nil || handler == nil {
		return
	}
	d.mu.Lock()
	d.clicks[layer] = append(d.clicks[layer], handler)
	d.mu.Unlock()
}

func (d *Dataset) OnSourceData(handler func()) {
	if d == nil || handler == nil {
		return
	}
	d.mu.Lock()
	d.sourceData = append(d.sourceData, handler)
	d.mu.Unlock()
}

// OnHover is accepted for contract completeness; the dataset surface has no
// cursor to change.
func (d *Dataset) OnHover(layer string, enter, leave func()) {}

// Click dispatches a click at a point to the handlers registered for layer.
func (d *Dataset) Click(layer string, at orb.Point) {
	if d == nil {
		return
	}
	d.mu.Lock()
	handlers := make([]func(at orb.Point), len(d.clicks[layer]))
	copy(handlers, d.clicks[layer])
	d.mu.Unlock()

	for _, h := range handlers {
		h(at)
	}
}

// Reload simulates a source-data reload: transient highlight state is
// dropped before the handlers run, so subscribers must replay it.
func (d *Dataset) Reload() {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.highlights = make(map[string]bool)
	handlers := make([]func(), len(d.sourceData))
	copy(handlers, d.sourceData)
	d.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

func containsPoint(g orb.Geometry, pt orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, pt)
	default:
		return false
	}
}
