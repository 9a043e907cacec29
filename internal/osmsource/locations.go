package osmsource

import "github.com/paulmach/osm"

// LocationStore resolves node coordinates for way geometry assembly. It
// mirrors osmium's NodeLocationsForWays handler: populated once during the
// full scan, read afterwards by anything that needs a node's location
// (the way/area geometry builders, and node analysis, which records each
// analysed node's location alongside its error state).
type latLon struct{ lat, lon float64 }

type LocationStore struct {
	locations map[osm.NodeID]latLon
}

// NewLocationStore returns an empty store sized for a rough node-count
// hint; callers that don't know the count can pass 0.
func NewLocationStore(sizeHint int) *LocationStore {
	return &LocationStore{locations: make(map[osm.NodeID]latLon, sizeHint)}
}

// Set records a node's coordinates. Call this for every *osm.Node seen
// during the full scan.
func (s *LocationStore) Set(id osm.NodeID, lat, lon float64) {
	s.locations[id] = latLon{lat: lat, lon: lon}
}

// Get returns a node's coordinates and whether it was found. A location
// going missing indicates a reference to a node outside the extract,
// which the caller treats as a per-object soft failure (log and skip).
func (s *LocationStore) Get(id osm.NodeID) (lat, lon float64, ok bool) {
	ll, found := s.locations[id]
	if !found {
		return 0, 0, false
	}
	return ll.lat, ll.lon, true
}

// Len reports how many node locations are currently stored.
func (s *LocationStore) Len() int {
	return len(s.locations)
}
