// Package mapsurface defines the narrow contract the selection subsystem
// drives the external map rendering surface through. Any concrete mapping
// backend can satisfy Surface; the rest of the module never talks to a map
// API directly.
package mapsurface

import (
	"github.com/paulmach/orb"
)

// Feature is one polygon reported by the surface. ID is the surface's
// promoted stable feature identifier in whatever type the surface uses
// (string or numeric); nil when the surface has none. Coercion to a
// canonical block id happens at the adapter boundary.
type Feature struct {
	ID         any
	Properties map[string]any
	Geometry   orb.Geometry
}

type Surface interface {
	// Ready reports whether a rendering context exists. While false, all
	// adapter operations against the surface are no-ops.
	Ready() bool

	// QuerySourceFeatures reads the currently loaded candidate polygons
	// for a source/source-layer pair.
	QuerySourceFeatures(source, sourceLayer string) []Feature

	// QueryRenderedFeatures hit-tests a point against the named layers.
	// The first returned feature is the topmost match.
	QueryRenderedFeatures(at orb.Point, layers []string) []Feature

	// SetFeatureHighlight pushes one polygon's highlight flag. It must
	// not disturb any other feature's state.
	SetFeatureHighlight(source, sourceLayer, featureID string, selected bool)

	// OnClick registers a click handler for one layer.
	OnClick(layer string, handler func(at orb.Point))

	// OnSourceData registers a handler fired after the surface reloads
	// source data. Reloads drop transient per-feature highlight state, so
	// consumers must replay it.
	OnSourceData(handler func())

	// OnHover registers enter/leave handlers for cursor affordance only.
	OnHover(layer string, enter, leave func())
}
