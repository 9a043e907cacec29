// Package falsepositive implements FalsePositiveIndicator: the two
// sub-phases that consume the error map built by analyse_nodes, narrowing
// optimistic possible-rivermouth/possible-outflow guesses down to
// confirmed specials or ordinary nodes.
//
// Grounded on original_source/src/falsepositives.hpp.
package falsepositive

import (
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/MeKo-Tech/osmwaterqa/internal/spatialdb"
	"github.com/MeKo-Tech/osmwaterqa/internal/tagcheck"
)

// Indicator drives both sub-phases against a shared Store.
type Indicator struct {
	store  *spatialdb.Store
	logger *slog.Logger
}

// New returns an Indicator writing through store. logger may be nil.
func New(store *spatialdb.Store, logger *slog.Logger) *Indicator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Indicator{store: store, logger: logger}
}

// CheckWay is sub-phase 1 (pass 3, streaming ways): for a way eligible for
// analysis, every node is checked against the error map if the way is a
// riverbank or coastline, otherwise only the interior nodes (strictly
// between the first and last) are checked. Nodes not currently in the
// error map are a no-op.
func (ind *Indicator) CheckWay(way *osm.Way) {
	if !tagcheck.IsWayToAnalyse(way.Tags) {
		return
	}

	nodeIDs := make([]osm.NodeID, len(way.Nodes))
	for i, wn := range way.Nodes {
		nodeIDs[i] = wn.ID
	}

	if tagcheck.IsRiverbankOrCoastline(way.Tags) {
		for _, id := range nodeIDs {
			ind.store.DeleteErrorNode(id)
		}
		return
	}

	if len(nodeIDs) <= 2 {
		return
	}
	for _, id := range nodeIDs[1 : len(nodeIDs)-1] {
		ind.store.DeleteErrorNode(id)
	}
}

// CheckPolygons is sub-phase 2 (pass 4): for every node still unresolved in
// the error map, materialise its recorded location and query the polygon
// spatial index; the first prepared polygon that contains the point
// triggers DeleteErrorNode.
func (ind *Indicator) CheckPolygons() {
	for _, id := range ind.store.ErrorNodeIDs() {
		lat, lon, ok := ind.store.ErrorNodeLocation(id)
		if !ok {
			continue
		}
		pt := orb.Point{lon, lat}
		if ind.store.Polygons().Query(pt) != nil {
			ind.store.DeleteErrorNode(id)
		}
	}
}
