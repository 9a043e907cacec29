// Package tagcheck answers the classification questions the rest of the
// pipeline asks about an OSM object's tags: is this a waterway, should this
// way be checked for false positives, what category does it fall in.
//
// Every function here is pure: no allocation beyond the returned string, no
// I/O, no failure mode. They operate on a plain tag lookup so callers can
// pass an osm.Tags, a map[string]string, or anything shaped like one.
package tagcheck

// Tags is anything that can answer "what's the value of this key". It is
// satisfied by osm.Tags (github.com/paulmach/osm) without an import cycle.
type Tags interface {
	Find(key string) string
}

// IsWaterway reports whether obj should be treated as a waterway feature.
// Multipolygon relations and waterway=riverbank never qualify; a relation
// qualifies via type=waterway, anything qualifies via a bare waterway tag,
// and a way additionally qualifies via natural=coastline. type=boundary
// relations are excluded separately, by the relation-registration step
// rather than here.
func IsWaterway(t Tags, isRelation bool) bool {
	if t.Find("type") == "multipolygon" {
		return false
	}
	waterway := t.Find("waterway")
	if waterway == "riverbank" {
		return false
	}
	if isRelation {
		if t.Find("type") == "waterway" {
			return true
		}
	}
	if waterway != "" {
		return true
	}
	if !isRelation && t.Find("natural") == "coastline" {
		return true
	}
	return false
}

// HasWaterwayTag reports whether the object carries any waterway tag at all.
func HasWaterwayTag(t Tags) bool {
	return t.Find("waterway") != ""
}

// IsWayToAnalyse reports whether a way is a candidate for the
// false-positive way pass: any waterway tag, a coastline or water area, or
// a reservoir/basin landuse.
func IsWayToAnalyse(t Tags) bool {
	if t.Find("waterway") != "" {
		return true
	}
	switch t.Find("natural") {
	case "coastline", "water":
		return true
	}
	switch t.Find("landuse") {
	case "reservoir", "basin":
		return true
	}
	return false
}

var linearWaterTypes = map[string]bool{
	"river": true, "drain": true, "stream": true,
	"canal": true, "ditch": true, "riverbank": true,
}

// IsAreaToAnalyse reports whether an assembled area is eligible for the
// polygon spatial index. Areas tagged as a linear waterway type (including
// riverbank) via waterway= or water= are excluded.
func IsAreaToAnalyse(t Tags) bool {
	if linearWaterTypes[t.Find("waterway")] {
		return false
	}
	if linearWaterTypes[t.Find("water")] {
		return false
	}
	return true
}

// IsRiverbankOrCoastline reports whether obj is a riverbank waterway or a
// coastline way — the cases where every node, not just the interior ones,
// must be checked against the error map.
func IsRiverbankOrCoastline(t Tags) bool {
	if t.Find("waterway") == "riverbank" {
		return true
	}
	return t.Find("natural") == "coastline"
}

// IsWaterArea reports whether obj is a water area: natural=water,
// landuse in {reservoir,basin}, or any waterway tag.
func IsWaterArea(t Tags) bool {
	if t.Find("natural") == "water" {
		return true
	}
	switch t.Find("landuse") {
	case "reservoir", "basin":
		return true
	}
	return t.Find("waterway") != ""
}

// WaterwayCategory classifies a waterway's raw type string into the coarse
// ordering used by the node-analysis state machine: A < B < C, with '?' for
// anything outside the accepted set (canals included, since flow direction
// and scale vary too much to reason about).
func WaterwayCategory(waterwayType string) byte {
	switch waterwayType {
	case "drain", "brook", "ditch":
		return 'A'
	case "stream":
		return 'B'
	case "river":
		return 'C'
	default:
		return '?'
	}
}

func canonicalWaterwayType(raw string) string {
	if raw == "" {
		return ""
	}
	switch raw {
	case "river", "stream", "drain", "brook", "canal", "ditch", "riverbank":
		return raw
	default:
		return "other"
	}
}

// WayType returns the canonical type string for a linear feature: the
// waterway type (collapsed to "other" outside the accepted set), or
// "coastline" for natural=coastline ways without a waterway tag, or "".
func WayType(t Tags) string {
	wt := canonicalWaterwayType(t.Find("waterway"))
	if wt == "" {
		if t.Find("natural") == "coastline" {
			return "coastline"
		}
		return ""
	}
	return wt
}

// PolygonType returns the canonical type string for an assembled area.
// Coastline takes precedence; otherwise, if the area carries no waterway
// tag at all, the raw landuse value is returned (possibly empty) — this is
// the final-revision behaviour that keeps landuse=reservoir|basin visible
// in the polygons layer rather than collapsing it away.
func PolygonType(t Tags) string {
	if t.Find("natural") == "coastline" {
		return "coastline"
	}
	if canonicalWaterwayType(t.Find("waterway")) == "" {
		return t.Find("landuse")
	}
	return ""
}

// Construction reports "bridge", "tunnel", or "" based on which tag is
// present; bridge is checked first.
func Construction(t Tags) string {
	if t.Find("bridge") != "" {
		return "bridge"
	}
	if t.Find("tunnel") != "" {
		return "tunnel"
	}
	return ""
}

// Width returns the raw width string to parse: the width tag if present,
// otherwise est_width, otherwise "".
func Width(t Tags) string {
	if w := t.Find("width"); w != "" {
		return w
	}
	return t.Find("est_width")
}
