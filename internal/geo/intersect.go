package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Intersects reports whether two area geometries overlap. Supported kinds
// are Polygon and MultiPolygon; anything else, and any degenerate polygon,
// is treated as non-intersecting rather than an error.
func Intersects(a, b orb.Geometry) bool {
	pa := polygonsOf(a)
	pb := polygonsOf(b)
	if len(pa) == 0 || len(pb) == 0 {
		return false
	}
	for _, p := range pa {
		for _, q := range pb {
			if polygonsIntersect(p, q) {
				return true
			}
		}
	}
	return false
}

// ValidArea reports whether g is a usable Polygon/MultiPolygon: at least one
// closed outer ring with nonzero area.
func ValidArea(g orb.Geometry) bool {
	polys := polygonsOf(g)
	if len(polys) == 0 {
		return false
	}
	for _, p := range polys {
		if !validPolygon(p) {
			return false
		}
	}
	return true
}

func polygonsOf(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		return v
	default:
		return nil
	}
}

func validPolygon(p orb.Polygon) bool {
	if len(p) == 0 || len(p[0]) < 4 {
		return false
	}
	return math.Abs(planar.Area(p)) > 0
}

func polygonsIntersect(p, q orb.Polygon) bool {
	if !validPolygon(p) || !validPolygon(q) {
		return false
	}
	if !p.Bound().Intersects(q.Bound()) {
		return false
	}

	// Containment either way: any vertex of one inside the other.
	for _, pt := range p[0] {
		if planar.PolygonContains(q, pt) {
			return true
		}
	}
	for _, pt := range q[0] {
		if planar.PolygonContains(p, pt) {
			return true
		}
	}

	// Overlap without vertex containment: outer-ring edges cross.
	return ringsCross(p[0], q[0])
}

func ringsCross(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear touch cases.
	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
