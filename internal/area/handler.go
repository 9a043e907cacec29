// Package area implements the AreaHandler: turns an assembled multipolygon
// into a polygon feature, and optionally into a prepared-polygon entry in
// the spatial index used by false-positive elimination.
//
// Grounded on original_source/src/areahandler.hpp.
package area

import (
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/osmwaterqa/internal/osmsource"
	"github.com/MeKo-Tech/osmwaterqa/internal/spatialdb"
	"github.com/MeKo-Tech/osmwaterqa/internal/tagcheck"
)

// Handler drives pass 2's area-consuming half: every osmsource.Area the
// assembler finishes (standalone or relation-built) flows through Handle.
type Handler struct {
	store  *spatialdb.Store
	logger *slog.Logger

	count int
}

// New returns a Handler writing through store. logger may be nil.
func New(store *spatialdb.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{store: store, logger: logger}
}

// Handle processes one assembled area: emits a polygon feature if the area
// is a water area, and additionally indexes it for point-in-polygon
// queries if it is eligible for analysis. A geometry failure (no outer
// rings) is logged and skipped, matching the original's catch-and-log
// around GEOS construction.
func (h *Handler) Handle(a osmsource.Area) {
	if !tagcheck.IsWaterArea(a.Tags) {
		return
	}

	mp := a.Polygon()
	if len(mp) == 0 {
		h.errorMessage(a, "empty polygon geometry")
		return
	}

	wayID, relationID := originIDs(a)
	name := a.Tags.Find("name")
	lastChange := spatialdb.FormatTimestamp(a.Timestamp)
	h.store.InsertPolygonFeature(wayID, relationID, a.Tags, name, lastChange, mp)

	if tagcheck.IsAreaToAnalyse(a.Tags) {
		h.insertInPolygonTree(mp)
	}
}

// CompletePolygonTree runs once, after pass 2: if not a single polygon was
// ever indexed, insert the empty-envelope sentinel so pass 3's
// point-in-polygon queries always have a well-defined (non-empty) R-tree
// to search against.
func (h *Handler) CompletePolygonTree() {
	if h.count == 0 {
		h.store.Polygons().InsertSentinel()
	}
}

func (h *Handler) insertInPolygonTree(mp orb.MultiPolygon) {
	for _, poly := range mp {
		bound := poly.Bound()
		h.store.Polygons().Insert(bound, &spatialdb.PreparedPolygon{Polygon: orb.MultiPolygon{poly}})
		h.count++
	}
}

func (h *Handler) errorMessage(a osmsource.Area, reason string) {
	if a.FromWay {
		h.logger.Warn("area handler error", "way_id", a.WayID, "reason", reason)
		return
	}
	h.logger.Warn("area handler error", "relation_id", a.RelationID, "reason", reason)
}

// originIDs returns the way/relation ids the polygon layer expects: one of
// the pair is non-zero, matching insert_polygon_feature's "wayID XOR
// relationID" contract.
func originIDs(a osmsource.Area) (wayID, relationID int64) {
	if a.FromWay {
		return int64(a.WayID), 0
	}
	return 0, int64(a.RelationID)
}
