package spatialdb

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
)

// GeoJSONDumpSink wraps another Sink and mirrors every node row into an
// in-memory GeoJSON FeatureCollection, backing the inspect command's
// --debug-geojson flag.
type GeoJSONDumpSink struct {
	Sink
	collection *geojson.FeatureCollection
}

// NewGeoJSONDumpSink wraps sink with debug node-layer GeoJSON capture.
func NewGeoJSONDumpSink(sink Sink) *GeoJSONDumpSink {
	return &GeoJSONDumpSink{Sink: sink, collection: geojson.NewFeatureCollection()}
}

func (d *GeoJSONDumpSink) InsertNodeFeature(f NodeFeature) error {
	feature := geojson.NewFeature(f.Geometry)
	feature.Properties = map[string]interface{}{
		"node_id":         f.NodeID,
		"specific":        f.Specific,
		"direction_error": f.DirectionError,
		"name_error":      f.NameError,
		"type_error":      f.TypeError,
		"spring_error":    f.SpringError,
		"end_error":       f.EndError,
		"way_error":       f.WayError,
	}
	d.collection.Append(feature)
	return d.Sink.InsertNodeFeature(f)
}

// WriteTo writes the accumulated node GeoJSON to path as indented JSON.
func (d *GeoJSONDumpSink) WriteTo(path string) error {
	data, err := json.MarshalIndent(d.collection, "", "  ")
	if err != nil {
		return fmt.Errorf("spatialdb: marshaling debug geojson: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
