// Package spatialdb owns the waterway arena, the node-degree index, the
// in-flight error map, the polygon spatial index, and the
// feature-insertion operations every other package drives through.
// Persistence itself is delegated to a Sink (sqlite.go's SQLite/WKB
// implementation in this repo), so Store never depends on how or whether
// a row survives past the call.
package spatialdb

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/MeKo-Tech/osmwaterqa/internal/errorsum"
	"github.com/MeKo-Tech/osmwaterqa/internal/tagcheck"
)

// WaterWay is a waterway's identity as far as node-topology analysis is
// concerned: its two endpoints, its name, and its flow-size category.
// Created once in InsertWayFeature, never mutated afterwards.
type WaterWay struct {
	FirstNode osm.NodeID
	LastNode  osm.NodeID
	Name      string
	Category  byte
}

type errorNode struct {
	sum errorsum.ErrorSum
	lat float64
	lon float64
}

// Store is the concrete DataStorage: the waterway arena (indexed, not
// pointer-referenced, so NodeDegreeIndex survives arena growth), the
// node-degree index, the error map, and the polygon index.
type Store struct {
	sink   Sink
	logger *slog.Logger

	waterways []WaterWay
	nodeIndex map[osm.NodeID][]int

	errorMap map[osm.NodeID]*errorNode

	polygons *PolygonIndex
}

// New returns a Store backed by sink. logger may be nil, in which case
// soft failures are discarded rather than logged.
func New(sink Sink, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		sink:      sink,
		logger:    logger,
		nodeIndex: make(map[osm.NodeID][]int),
		errorMap:  make(map[osm.NodeID]*errorNode),
		polygons:  NewPolygonIndex(),
	}
}

// Polygons exposes the polygon spatial index for AreaHandler (write
// access during pass 2) and the false-positive sub-phase 2 (read access
// during pass 3).
func (s *Store) Polygons() *PolygonIndex {
	return s.polygons
}

// rememberWay appends a new WaterWay to the arena and indexes it at both
// endpoints.
func (s *Store) rememberWay(first, last osm.NodeID, name string, category byte) {
	idx := len(s.waterways)
	s.waterways = append(s.waterways, WaterWay{FirstNode: first, LastNode: last, Name: name, Category: category})
	s.nodeIndex[first] = append(s.nodeIndex[first], idx)
	s.nodeIndex[last] = append(s.nodeIndex[last], idx)
}

// AnalysisNodeIDs returns every node id present in the node-degree index,
// sorted for deterministic iteration order, for analyse_nodes to walk.
func (s *Store) AnalysisNodeIDs() []osm.NodeID {
	ids := make([]osm.NodeID, 0, len(s.nodeIndex))
	for id := range s.nodeIndex {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// InsertWayError emits a synthetic node-error row for a way that could
// not form a linestring (typically a one-node way), bypassing the error
// map entirely since this failure is never subject to false-positive
// elimination.
func (s *Store) InsertWayError(nodeID osm.NodeID, lat, lon float64) {
	var sum errorsum.ErrorSum
	sum.SetWayError()
	s.InsertNodeFeature(nodeID, lat, lon, sum)
}

// IncidentWaterways returns the waterways touching node, in the order
// they were registered.
func (s *Store) IncidentWaterways(node osm.NodeID) []WaterWay {
	indexes := s.nodeIndex[node]
	if len(indexes) == 0 {
		return nil
	}
	out := make([]WaterWay, len(indexes))
	for i, idx := range indexes {
		out[i] = s.waterways[idx]
	}
	return out
}

// InsertPolygonFeature writes a row to the polygons layer. wayID XOR
// relationID identifies the area's origin; an empty geometry is a soft
// failure (logged, skipped), matching a failed polygon construction
// upstream.
func (s *Store) InsertPolygonFeature(wayID, relationID int64, tags tagcheck.Tags, name, lastChange string, geom orb.MultiPolygon) {
	if len(geom) == 0 {
		s.logger.Warn("skipping polygon feature with empty geometry", "way_id", wayID, "relation_id", relationID)
		return
	}
	if err := s.sink.InsertPolygonFeature(PolygonFeature{
		Geometry:   geom,
		WayID:      wayID,
		RelationID: relationID,
		Type:       tagcheck.PolygonType(tags),
		Name:       name,
		LastChange: lastChange,
	}); err != nil {
		s.logger.Warn("failed to write polygon feature", "way_id", wayID, "relation_id", relationID, "error", err)
	}
}

// InsertRelationFeature writes a row to the relations layer.
// containsNowaterway drives both the nowaterway_error and tagging_error
// columns, since for a relation the only tagging defect this pipeline
// detects is a member way missing its own waterway tag.
func (s *Store) InsertRelationFeature(relationID int64, tags tagcheck.Tags, name, lastChange string, containsNowaterway bool, geom orb.MultiLineString) {
	if len(geom) == 0 {
		s.logger.Warn("skipping relation feature with empty geometry", "relation_id", relationID)
		return
	}
	if err := s.sink.InsertRelationFeature(RelationFeature{
		Geometry:        geom,
		RelationID:      relationID,
		Type:            tagcheck.WayType(tags),
		Name:            name,
		LastChange:      lastChange,
		NowaterwayError: containsNowaterway,
		TaggingError:    containsNowaterway,
	}); err != nil {
		s.logger.Warn("failed to write relation feature", "relation_id", relationID, "error", err)
	}
}

// InsertWayFeature writes a row to the ways layer and remembers the
// waterway in the node-degree index. rel_id is 0 for a standalone way.
func (s *Store) InsertWayFeature(wayID int64, tags tagcheck.Tags, relID int64, firstNode, lastNode osm.NodeID, lastChange string, geom orb.LineString) {
	if len(geom) == 0 {
		s.logger.Warn("skipping way feature with empty geometry", "way_id", wayID)
		return
	}
	wayType := tagcheck.WayType(tags)
	name := tags.Find("name")
	rawWidth := tagcheck.Width(tags)
	width := ""
	var widthInvalid bool
	if rawWidth != "" {
		meters, invalid := ParseWidth(rawWidth)
		width = FormatWidth(meters)
		widthInvalid = invalid
	}

	if err := s.sink.InsertWayFeature(WayFeature{
		Geometry:     geom,
		WayID:        wayID,
		Type:         wayType,
		Name:         name,
		FirstNode:    strconv.FormatInt(int64(firstNode), 10),
		LastNode:     strconv.FormatInt(int64(lastNode), 10),
		RelationID:   relID,
		Width:        width,
		LastChange:   lastChange,
		Construction: tagcheck.Construction(tags),
		WidthError:   widthInvalid,
	}); err != nil {
		s.logger.Warn("failed to write way feature", "way_id", wayID, "error", err)
	}

	s.rememberWay(firstNode, lastNode, name, tagcheck.WaterwayCategory(wayType))
}

// InsertNodeFeature writes a row to the nodes layer for a node whose
// ErrorSum is final (either because it was normal at analysis time, or
// because the false-positive phases just resolved it).
func (s *Store) InsertNodeFeature(nodeID osm.NodeID, lat, lon float64, sum errorsum.ErrorSum) {
	if err := s.sink.InsertNodeFeature(NodeFeature{
		Geometry:       orb.Point{lon, lat},
		NodeID:         strconv.FormatInt(int64(nodeID), 10),
		Specific:       sum.SpecificLabel(),
		DirectionError: sum.IsDirectionError(),
		NameError:      sum.IsNameError(),
		TypeError:      sum.IsTypeError(),
		SpringError:    sum.IsSpringError(),
		EndError:       sum.IsEndError(),
		WayError:       sum.IsWayError(),
	}); err != nil {
		s.logger.Warn("failed to write node feature", "node_id", nodeID, "error", err)
	}
}

// HandleAnalysedNode implements the final step of analyse_nodes: a normal
// ErrorSum is emitted immediately; anything else goes into the error map
// for the false-positive passes to resolve.
func (s *Store) HandleAnalysedNode(nodeID osm.NodeID, lat, lon float64, sum errorsum.ErrorSum) {
	if sum.IsNormal() {
		s.InsertNodeFeature(nodeID, lat, lon, sum)
		return
	}
	s.errorMap[nodeID] = &errorNode{sum: sum, lat: lat, lon: lon}
}

// HasErrorNode reports whether nodeID is currently under investigation.
func (s *Store) HasErrorNode(nodeID osm.NodeID) bool {
	_, ok := s.errorMap[nodeID]
	return ok
}

// DeleteErrorNode implements the shared false-positive elimination
// decision: a possible-rivermouth promotes to a confirmed rivermouth
// (and stays in the map — there is nothing left to investigate, but the
// row isn't written until final flush so SwitchPoss never runs on an
// already-confirmed specific); a possible-outflow promotes the same way;
// an already-confirmed rivermouth or outflow is left unchanged; anything
// else is a false positive and is cleared, emitted now, and removed from
// the map.
func (s *Store) DeleteErrorNode(nodeID osm.NodeID) {
	node, ok := s.errorMap[nodeID]
	if !ok {
		return
	}
	switch {
	case node.sum.IsPossRivermouth():
		node.sum.SetRivermouth()
	case node.sum.IsPossOutflow():
		node.sum.SetOutflow()
	case node.sum.IsRivermouth(), node.sum.IsOutflow():
		// Already confirmed by an earlier hit: kept as is until final flush.
	default:
		if !node.sum.IsNormal() {
			node.sum.SetToNormal()
			s.InsertNodeFeature(nodeID, node.lat, node.lon, node.sum)
			delete(s.errorMap, nodeID)
		}
	}
}

// ErrorNodeLocation returns the recorded location for a node under
// investigation, used by the polygon sub-phase to materialize a point for
// containment testing.
func (s *Store) ErrorNodeLocation(nodeID osm.NodeID) (lat, lon float64, ok bool) {
	node, found := s.errorMap[nodeID]
	if !found {
		return 0, 0, false
	}
	return node.lat, node.lon, true
}

// ErrorNodeIDs returns the ids currently under investigation, sorted for
// deterministic iteration order (Go maps have none on their own).
func (s *Store) ErrorNodeIDs() []osm.NodeID {
	ids := make([]osm.NodeID, 0, len(s.errorMap))
	for id := range s.errorMap {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// InsertErrorNodes flushes whatever remains in the error map at the end
// of the run: every entry's possible-specific is reinterpreted via
// SwitchPoss, emitted as a node row, and removed.
func (s *Store) InsertErrorNodes() {
	for _, id := range s.ErrorNodeIDs() {
		node := s.errorMap[id]
		node.sum.SwitchPoss()
		s.InsertNodeFeature(id, node.lat, node.lon, node.sum)
		delete(s.errorMap, id)
	}
}

// Close flushes and closes the underlying sink.
func (s *Store) Close() error {
	return s.sink.Close()
}
