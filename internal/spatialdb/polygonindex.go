package spatialdb

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"
)

// PreparedPolygon pairs a multipolygon with the fast point-in-polygon test
// used during false-positive elimination. It stands in for the original's
// GEOS geos::geom::prep::PreparedPolygon — no GEOS or JTS-equivalent
// binding appears anywhere in the retrieved example pack, so orb/planar's
// ring-walk containment test is the grounded substitute (see DESIGN.md).
type PreparedPolygon struct {
	Polygon orb.MultiPolygon
}

// Contains reports whether pt falls inside any member polygon: inside its
// outer ring and outside its holes.
func (p *PreparedPolygon) Contains(pt orb.Point) bool {
	for _, poly := range p.Polygon {
		if planar.PolygonContains(poly, pt) {
			return true
		}
	}
	return false
}

// PolygonIndex is an R-tree of water polygon envelopes, populated
// incrementally during pass 2 (AreaHandler) and queried read-only during
// pass 3's sub-phase 2.
type PolygonIndex struct {
	tree  rtree.RTreeG[*PreparedPolygon]
	count int
}

// NewPolygonIndex returns an empty index.
func NewPolygonIndex() *PolygonIndex {
	return &PolygonIndex{}
}

// Insert adds a prepared polygon keyed by its bound.
func (idx *PolygonIndex) Insert(bound orb.Bound, poly *PreparedPolygon) {
	idx.tree.Insert(
		[2]float64{bound.Min[0], bound.Min[1]},
		[2]float64{bound.Max[0], bound.Max[1]},
		poly,
	)
	idx.count++
}

// Count reports how many polygons have been inserted (sentinel excluded).
func (idx *PolygonIndex) Count() int {
	return idx.count
}

// InsertSentinel adds a single zero-envelope entry with a nil value so the
// index is never queried while structurally empty, mirroring
// complete_polygon_tree's guard against an empty STRtree.
func (idx *PolygonIndex) InsertSentinel() {
	idx.tree.Insert([2]float64{0, 0}, [2]float64{0, 0}, nil)
}

// Query tests pt against every prepared polygon whose envelope contains
// it, in arbitrary order, and returns the first one that contains pt, or
// nil if none does. The sentinel entry is skipped.
func (idx *PolygonIndex) Query(pt orb.Point) *PreparedPolygon {
	var hit *PreparedPolygon
	idx.tree.Search(
		[2]float64{pt[0], pt[1]},
		[2]float64{pt[0], pt[1]},
		func(min, max [2]float64, poly *PreparedPolygon) bool {
			if poly == nil {
				return true
			}
			if poly.Contains(pt) {
				hit = poly
				return false
			}
			return true
		},
	)
	return hit
}
