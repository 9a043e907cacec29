package spatialdb

import "github.com/paulmach/orb"

// PolygonFeature is one row of the polygons layer.
type PolygonFeature struct {
	Geometry   orb.MultiPolygon
	WayID      int64
	RelationID int64
	Type       string
	Name       string
	LastChange string
}

// RelationFeature is one row of the relations layer.
type RelationFeature struct {
	Geometry        orb.MultiLineString
	RelationID      int64
	Type            string
	Name            string
	LastChange      string
	NowaterwayError bool
	TaggingError    bool
}

// WayFeature is one row of the ways layer.
type WayFeature struct {
	Geometry     orb.LineString
	WayID        int64
	Type         string
	Name         string
	FirstNode    string
	LastNode     string
	RelationID   int64
	Width        string
	LastChange   string
	Construction string
	WidthError   bool
	TaggingError bool
}

// NodeFeature is one row of the nodes layer.
type NodeFeature struct {
	Geometry       orb.Point
	NodeID         string
	Specific       string
	DirectionError bool
	NameError      bool
	TypeError      bool
	SpringError    bool
	EndError       bool
	WayError       bool
}

// Sink is the forward, insert-only interface the collectors borrow:
// callers append rows without knowing how (or whether) they are
// persisted. A Sink is expected to fail soft — a geometry construction
// failure at this layer is logged and the row is skipped, never
// propagated as a fatal error.
type Sink interface {
	InsertPolygonFeature(PolygonFeature) error
	InsertRelationFeature(RelationFeature) error
	InsertWayFeature(WayFeature) error
	InsertNodeFeature(NodeFeature) error
	Close() error
}
