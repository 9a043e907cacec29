package osmsource

import (
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/MeKo-Tech/osmwaterqa/internal/tagcheck"
)

// Area is an assembled multipolygon area, whether it came from a
// type=multipolygon/boundary relation with outer/inner member ways or
// from a single closed standalone way.
type Area struct {
	FromWay    bool
	WayID      osm.WayID
	RelationID osm.RelationID
	Outer      []orb.Ring
	Inner      []orb.Ring
	Tags       osm.Tags
	Timestamp  time.Time
}

// Polygon converts the assembled rings into an orb.MultiPolygon. Every
// outer ring becomes its own polygon; every inner ring is attached to the
// first outer ring that contains its first point, falling back to the
// first outer ring if none contains it (mirrors how a minimal join can't
// always recover exact osmium ring-assignment, and an area with a single
// outer ring is the overwhelming common case anyway).
func (a Area) Polygon() orb.MultiPolygon {
	if len(a.Outer) == 0 {
		return nil
	}
	mp := make(orb.MultiPolygon, len(a.Outer))
	for i, outer := range a.Outer {
		mp[i] = orb.Polygon{outer}
	}
	for _, inner := range a.Inner {
		idx := 0
		if len(inner) > 0 {
			for i, outer := range a.Outer {
				if ringContainsPoint(outer, inner[0]) {
					idx = i
					break
				}
			}
		}
		mp[idx] = append(mp[idx], inner)
	}
	return mp
}

func ringContainsPoint(ring orb.Ring, p orb.Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi[1] > p[1]) != (pj[1] > p[1]) &&
			p[0] < (pj[0]-pi[0])*(p[1]-pi[1])/(pj[1]-pi[1])+pi[0] {
			inside = !inside
		}
	}
	return inside
}

type memberRef struct {
	wayID    osm.WayID
	role     string
	nodeIDs  []osm.NodeID
	resolved bool
}

type pendingRelation struct {
	id        osm.RelationID
	tags      osm.Tags
	timestamp time.Time
	members   []memberRef
}

// Assembler registers type=multipolygon/boundary water-area relations
// during pass 1 (RegisterRelation), collects their member way geometry
// during pass 2 (AddWay), and joins the collected segments into closed
// rings at end of stream (Finish). This is the Go-native, single-pass
// equivalent of osmium_waterpolygon.hpp's WaterpolygonCollector: the
// original relies on osmium::area::Assembler's buffer offsets, which has
// no analogue over a streaming decoder, so ring-joining here is a plain
// endpoint-matching walk instead.
type Assembler struct {
	pending    map[osm.RelationID]*pendingRelation
	wayMembers map[osm.WayID][]osm.RelationID
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		pending:    make(map[osm.RelationID]*pendingRelation),
		wayMembers: make(map[osm.WayID][]osm.RelationID),
	}
}

func isMultipolygonAreaRelation(rel *osm.Relation) bool {
	t := rel.Tags.Find("type")
	if t != "multipolygon" && t != "boundary" {
		return false
	}
	return tagcheck.IsWaterArea(rel.Tags)
}

// RegisterRelation records rel as a pending area if it is a water-tagged
// multipolygon or boundary relation. Non-way members are ignored, matching
// osmium_waterpolygon.hpp's keep_member.
func (a *Assembler) RegisterRelation(rel *osm.Relation) {
	if !isMultipolygonAreaRelation(rel) {
		return
	}
	pr := &pendingRelation{id: rel.ID, tags: rel.Tags, timestamp: rel.Timestamp}
	for _, m := range rel.Members {
		if m.Type != "way" {
			continue
		}
		wayID := osm.WayID(m.Ref)
		pr.members = append(pr.members, memberRef{wayID: wayID, role: m.Role})
		a.wayMembers[wayID] = append(a.wayMembers[wayID], rel.ID)
	}
	a.pending[rel.ID] = pr
}

// IsMember reports whether wayID is a member of any registered relation,
// used by the orchestrator to skip routing that way to the standalone-way
// area path.
func (a *Assembler) IsMember(wayID osm.WayID) bool {
	_, ok := a.wayMembers[wayID]
	return ok
}

// AddWay records a member way's node chain so it can be joined into rings
// at Finish. Ways that are not a member of any registered relation are
// ignored.
func (a *Assembler) AddWay(way *osm.Way) {
	relIDs, ok := a.wayMembers[way.ID]
	if !ok {
		return
	}
	nodeIDs := make([]osm.NodeID, len(way.Nodes))
	for i, wn := range way.Nodes {
		nodeIDs[i] = wn.ID
	}
	for _, relID := range relIDs {
		pr := a.pending[relID]
		if pr == nil {
			continue
		}
		for i := range pr.members {
			if pr.members[i].wayID == way.ID {
				pr.members[i].nodeIDs = nodeIDs
				pr.members[i].resolved = true
			}
		}
	}
}

// StandaloneArea builds a single-ring area from a closed way that is not a
// member of any relation but is itself water-tagged, mirroring
// way_not_in_any_relation's simple-multipolygon-from-closed-way case.
func StandaloneArea(way *osm.Way, locs *LocationStore) (Area, bool) {
	if len(way.Nodes) < 4 {
		return Area{}, false
	}
	if way.Nodes[0].ID != way.Nodes[len(way.Nodes)-1].ID {
		return Area{}, false
	}
	nodeIDs := make([]osm.NodeID, len(way.Nodes))
	for i, wn := range way.Nodes {
		nodeIDs[i] = wn.ID
	}
	ring, ok := resolveRing(nodeIDs, locs)
	if !ok {
		return Area{}, false
	}
	return Area{
		FromWay:   true,
		WayID:     way.ID,
		Tags:      way.Tags,
		Timestamp: way.Timestamp,
		Outer:     []orb.Ring{ring},
	}, true
}

// Finish joins every pending relation's collected member segments into
// closed rings and returns the resulting areas, plus the ids of relations
// that could not be fully assembled (a missing member, or a chain that
// never closed) — reported as the end-of-program incomplete-relations
// warning. Relations are returned in ascending id order for deterministic
// output.
func (a *Assembler) Finish(locs *LocationStore) (areas []Area, incompleteRelationIDs []osm.RelationID) {
	ids := make([]osm.RelationID, 0, len(a.pending))
	for id := range a.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		pr := a.pending[id]
		var outerMembers, innerMembers []memberRef
		complete := true
		for _, m := range pr.members {
			if !m.resolved {
				complete = false
				continue
			}
			if m.role == "inner" {
				innerMembers = append(innerMembers, m)
			} else {
				// "outer" and any unrecognized/empty role default to outer,
				// matching convertMultipolygonRelationToFeature's fallback.
				outerMembers = append(outerMembers, m)
			}
		}
		outerRings, outerOK := joinRings(outerMembers, locs)
		innerRings, innerOK := joinRings(innerMembers, locs)
		if !outerOK || !innerOK {
			complete = false
		}
		if len(outerRings) == 0 {
			incompleteRelationIDs = append(incompleteRelationIDs, id)
			continue
		}
		if !complete {
			incompleteRelationIDs = append(incompleteRelationIDs, id)
		}
		areas = append(areas, Area{
			RelationID: id,
			Tags:       pr.tags,
			Timestamp:  pr.timestamp,
			Outer:      outerRings,
			Inner:      innerRings,
		})
	}
	return areas, incompleteRelationIDs
}

// joinRings walks a set of member way node-chains, matching endpoints
// until each chain closes into a ring. A chain that runs out of
// candidates before closing is dropped and reported via ok=false.
func joinRings(members []memberRef, locs *LocationStore) (rings []orb.Ring, ok bool) {
	if len(members) == 0 {
		return nil, true
	}
	remaining := make([][]osm.NodeID, len(members))
	for i, m := range members {
		remaining[i] = m.nodeIDs
	}
	ok = true
	for len(remaining) > 0 {
		current := remaining[0]
		remaining = remaining[1:]
		for len(current) > 0 && current[0] != current[len(current)-1] {
			extended := false
			for i, seg := range remaining {
				last := current[len(current)-1]
				switch {
				case seg[0] == last:
					current = append(current, seg[1:]...)
				case seg[len(seg)-1] == last:
					current = append(current, reversedNodeIDs(seg)[1:]...)
				default:
					continue
				}
				remaining = append(remaining[:i], remaining[i+1:]...)
				extended = true
				break
			}
			if !extended {
				ok = false
				current = nil
				break
			}
		}
		if len(current) == 0 {
			continue
		}
		ring, resolvedOK := resolveRing(current, locs)
		if !resolvedOK {
			ok = false
			continue
		}
		rings = append(rings, ring)
	}
	return rings, ok
}

func reversedNodeIDs(in []osm.NodeID) []osm.NodeID {
	out := make([]osm.NodeID, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func resolveRing(nodeIDs []osm.NodeID, locs *LocationStore) (orb.Ring, bool) {
	ring := make(orb.Ring, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		lat, lon, found := locs.Get(id)
		if !found {
			return nil, false
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	return ring, true
}
