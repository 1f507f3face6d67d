package geo

import (
	"github.com/paulmach/orb"

	"github.com/cameron-ship-it/Blocks-mapbox/internal/selection"
)

// Boundary is one named neighborhood polygon, immutable once loaded from the
// geography source. Bound is derived at construction so repeated filter
// passes never recompute it.
type Boundary struct {
	ID       string
	Name     string
	Geometry orb.Geometry
	Bound    orb.Bound
}

func NewBoundary(id, name string, geometry orb.Geometry) Boundary {
	b := Boundary{ID: id, Name: name, Geometry: geometry}
	if geometry != nil {
		b.Bound = geometry.Bound()
	}
	return b
}

// CandidateBlock is a block polygon currently available from the map
// surface. Transient: held only while a filter pass runs.
type CandidateBlock struct {
	ID       selection.BlockID
	Geometry orb.Geometry
}

// CombinedBound unions the bounding boxes of the named boundaries. ok is
// false when none of the ids resolve.
func CombinedBound(ids []string, lookup map[string]Boundary) (orb.Bound, bool) {
	var out orb.Bound
	found := false
	for _, id := range ids {
		b, ok := lookup[id]
		if !ok || b.Geometry == nil {
			continue
		}
		if !found {
			out = b.Bound
			found = true
			continue
		}
		out = out.Union(b.Bound)
	}
	return out, found
}
