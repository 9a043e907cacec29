// Package waterway implements the WaterwayCollector: relation
// registration and completion, standalone-way handling, and the
// analyse_nodes state machine that is the heart of the tool. Grounded on
// original_source/src/waterway.hpp.
package waterway

import (
	"log/slog"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/MeKo-Tech/osmwaterqa/internal/errorsum"
	"github.com/MeKo-Tech/osmwaterqa/internal/osmsource"
	"github.com/MeKo-Tech/osmwaterqa/internal/spatialdb"
	"github.com/MeKo-Tech/osmwaterqa/internal/tagcheck"
)

type memberWay struct {
	wayID    osm.WayID
	way      *osm.Way
	resolved bool
}

type pendingRelation struct {
	relation *osm.Relation
	members  []memberWay
}

// Collector drives the three WaterwayCollector phases plus node analysis.
// Relation bookkeeping is kept for the Collector's lifetime (FinishRelations
// does not clear it), and all output flows through the Store it was
// constructed with.
type Collector struct {
	store  *spatialdb.Store
	locs   *osmsource.LocationStore
	logger *slog.Logger

	pending    map[osm.RelationID]*pendingRelation
	wayMembers map[osm.WayID][]osm.RelationID
}

// New returns a Collector backed by store and locs. logger may be nil.
func New(store *spatialdb.Store, locs *osmsource.LocationStore, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{
		store:      store,
		locs:       locs,
		logger:     logger,
		pending:    make(map[osm.RelationID]*pendingRelation),
		wayMembers: make(map[osm.WayID][]osm.RelationID),
	}
}

// RegisterRelation is phase A (pass 1): subscribe to a retained relation's
// way members. A relation tagged type=boundary is never retained, even if
// it also carries a waterway tag.
func (c *Collector) RegisterRelation(rel *osm.Relation) {
	if rel.Tags.Find("type") == "boundary" {
		return
	}
	if !tagcheck.IsWaterway(rel.Tags, true) {
		return
	}
	pr := &pendingRelation{relation: rel}
	for _, m := range rel.Members {
		if m.Type != "way" {
			continue
		}
		wayID := osm.WayID(m.Ref)
		pr.members = append(pr.members, memberWay{wayID: wayID})
		c.wayMembers[wayID] = append(c.wayMembers[wayID], rel.ID)
	}
	c.pending[rel.ID] = pr
}

// IsMember reports whether wayID belongs to any registered relation, used
// by the orchestrator to route a way to phase B instead of phase C.
func (c *Collector) IsMember(wayID osm.WayID) bool {
	_, ok := c.wayMembers[wayID]
	return ok
}

// AddWay records a member way's body during pass 2, for later completion
// in FinishRelations. Ways that are not a member of any registered
// relation are ignored.
func (c *Collector) AddWay(way *osm.Way) {
	relIDs, ok := c.wayMembers[way.ID]
	if !ok {
		return
	}
	for _, relID := range relIDs {
		pr := c.pending[relID]
		if pr == nil {
			continue
		}
		for i := range pr.members {
			if pr.members[i].wayID == way.ID {
				pr.members[i].way = way
				pr.members[i].resolved = true
			}
		}
	}
}

// HandleStandaloneWay is phase C: a waterway way not belonging to any
// retained relation is emitted with rel_id = 0.
func (c *Collector) HandleStandaloneWay(way *osm.Way) {
	if c.IsMember(way.ID) {
		return
	}
	if !tagcheck.IsWaterway(way.Tags, false) {
		return
	}
	c.emitWay(way, 0)
}

// FinishRelations processes every registered relation with whatever
// members were resolved during pass 2, emitting a way row per member and
// one relation row per relation with at least one linestring member. It
// returns the ids of relations missing one or more members, for the
// end-of-program incomplete-relations warning; a relation whose members all
// arrived but yield no linestring gets no row and is not reported.
// Relations are visited in ascending id order for deterministic output.
func (c *Collector) FinishRelations() (incompleteRelationIDs []osm.RelationID) {
	ids := make([]osm.RelationID, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		pr := c.pending[id]
		complete := true
		var lines []orb.LineString
		containsNowaterway := false

		for _, m := range pr.members {
			if !m.resolved {
				complete = false
				continue
			}
			if !tagcheck.HasWaterwayTag(m.way.Tags) {
				containsNowaterway = true
			}
			if line, ok := c.emitWay(m.way, id); ok {
				lines = append(lines, line)
			}
		}

		if len(lines) == 0 {
			if !complete {
				incompleteRelationIDs = append(incompleteRelationIDs, id)
			}
			continue
		}

		mls := orb.MultiLineString(lines)
		name := pr.relation.Tags.Find("name")
		lastChange := spatialdb.FormatTimestamp(pr.relation.Timestamp)
		c.store.InsertRelationFeature(int64(id), pr.relation.Tags, name, lastChange, containsNowaterway, mls)

		if !complete {
			incompleteRelationIDs = append(incompleteRelationIDs, id)
		}
	}
	return incompleteRelationIDs
}

// emitWay builds a linestring for way, deduplicating adjacent repeated
// node references, writes a way feature with relID as its owner, and
// remembers the waterway in the node-degree index. A way that collapses
// to a single distinct node contributes a synthetic way_error node instead
// of a way row.
func (c *Collector) emitWay(way *osm.Way, relID osm.RelationID) (orb.LineString, bool) {
	nodeIDs := make([]osm.NodeID, len(way.Nodes))
	for i, wn := range way.Nodes {
		nodeIDs[i] = wn.ID
	}
	deduped := dedupAdjacent(nodeIDs)

	if len(deduped) < 2 {
		if len(deduped) == 1 {
			if lat, lon, ok := c.locs.Get(deduped[0]); ok {
				c.store.InsertWayError(deduped[0], lat, lon)
			} else {
				c.logger.Warn("one-node way has unresolved location", "way_id", way.ID)
			}
		} else {
			c.logger.Warn("way has no nodes", "way_id", way.ID)
		}
		return nil, false
	}

	line := make(orb.LineString, 0, len(deduped))
	for _, id := range deduped {
		lat, lon, ok := c.locs.Get(id)
		if !ok {
			c.logger.Warn("way references unknown node", "way_id", way.ID, "node_id", id)
			return nil, false
		}
		line = append(line, orb.Point{lon, lat})
	}

	lastChange := spatialdb.FormatTimestamp(way.Timestamp)
	c.store.InsertWayFeature(int64(way.ID), way.Tags, int64(relID), deduped[0], deduped[len(deduped)-1], lastChange, line)
	return line, true
}

func dedupAdjacent(ids []osm.NodeID) []osm.NodeID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]osm.NodeID, 0, len(ids))
	out = append(out, ids[0])
	for _, id := range ids[1:] {
		if id == out[len(out)-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// AnalyseNodes runs at the end of pass 2: for every node id present in the
// node-degree index, partition its incident waterways by direction,
// detect direction/name/type errors and possible-rivermouth/outflow
// states, and hand the result to the store to emit or hold for the
// false-positive passes.
func (c *Collector) AnalyseNodes() {
	for _, nodeID := range c.store.AnalysisNodeIDs() {
		incident := c.store.IncidentWaterways(nodeID)

		var sum errorsum.ErrorSum
		var names []string
		var categoryIn, categoryOut []byte
		countIn, countOut := 0, 0

		for _, w := range incident {
			if w.FirstNode == nodeID {
				countOut++
				names = append(names, w.Name)
				categoryOut = append(categoryOut, w.Category)
			}
			if w.LastNode == nodeID {
				countIn++
				names = append(names, w.Name)
				categoryIn = append(categoryIn, w.Category)
			}
		}

		detectDirectionError(countOut, countIn, &sum)
		detectNameError(names, &sum)
		detectFlowErrors(categoryIn, categoryOut, &sum)

		lat, lon, ok := c.locs.Get(nodeID)
		if !ok {
			c.logger.Warn("node without location", "node_id", nodeID)
			continue
		}
		c.store.HandleAnalysedNode(nodeID, lat, lon, sum)
	}
}

// detectDirectionError flags a node where flow arrives only or departs
// only, with an imbalance greater than one.
func detectDirectionError(countOut, countIn int, sum *errorsum.ErrorSum) {
	diff := countOut - countIn
	if diff < 0 {
		diff = -diff
	}
	if diff > 1 && (countOut == 0 || countIn == 0) {
		sum.SetDirectionError()
	}
}

// detectNameError flags exactly two incident ways with different
// non-empty names; any other arity is ambiguous and not checked.
func detectNameError(names []string, sum *errorsum.ErrorSum) {
	if len(names) != 2 {
		return
	}
	if names[0] != "" && names[1] != "" && names[0] != names[1] {
		sum.SetNameError()
	}
}

// detectFlowErrors compares the highest waterway category flowing in
// against the highest flowing out (C > B > A > '?', which matches ASCII
// ordering directly) and sets a type error, or tags a lone inflow/outflow
// as a possible rivermouth/outflow with a river or stream size hint for
// categories C and B. A lone waterway of category '?' is not tagged.
func detectFlowErrors(categoryIn, categoryOut []byte, sum *errorsum.ErrorSum) {
	var maxIn, maxOut byte
	for _, c := range categoryIn {
		if c > maxIn {
			maxIn = c
		}
	}
	for _, c := range categoryOut {
		if c > maxOut {
			maxOut = c
		}
	}

	switch {
	case len(categoryOut) > 0 && len(categoryIn) > 0:
		if maxIn == 'C' && maxOut < 'C' && maxOut != '?' {
			sum.SetTypeError()
		}
	case len(categoryIn) == 1:
		switch categoryIn[0] {
		case 'C':
			sum.SetPossRivermouth()
			sum.SetRiver()
		case 'B':
			sum.SetPossRivermouth()
			sum.SetStream()
		case 'A':
			sum.SetPossRivermouth()
		}
	case len(categoryOut) == 1:
		switch categoryOut[0] {
		case 'C':
			sum.SetPossOutflow()
			sum.SetRiver()
		case 'B':
			sum.SetPossOutflow()
			sum.SetStream()
		case 'A':
			sum.SetPossOutflow()
		}
	}
}
