package geo

import (
	"github.com/cameron-ship-it/Blocks-mapbox/internal/selection"
)

// FilterResult carries the ids of intersecting blocks plus the number of
// candidates skipped for degenerate geometry, so callers can count and log
// the data-quality condition without the filter itself reporting errors.
type FilterResult struct {
	IDs     []selection.BlockID
	Skipped int
}

// ComputeIntersecting returns every candidate block whose geometry
// intersects at least one of the chosen boundaries. Pure: feeding the
// result into a selection store is the caller's job.
//
// Cost is one bbox check per (boundary, block) pair with full geometry
// tests only on bbox hits, which keeps typical inputs (tens of boundaries,
// hundreds of rendered blocks) well inside a UI frame budget.
func ComputeIntersecting(boundaries []Boundary, blocks []CandidateBlock) FilterResult {
	var res FilterResult
	for _, blk := range blocks {
		if !ValidArea(blk.Geometry) {
			res.Skipped++
			continue
		}
		blockBound := blk.Geometry.Bound()
		for _, b := range boundaries {
			if b.Geometry == nil || !blockBound.Intersects(b.Bound) {
				continue
			}
			if Intersects(blk.Geometry, b.Geometry) {
				res.IDs = append(res.IDs, blk.ID)
				break
			}
		}
	}
	return res
}
