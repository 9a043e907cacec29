package spatialdb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func TestGeoJSONDumpSinkWritesFeatureForEachNode(t *testing.T) {
	inner := &fakeSink{}
	dump := NewGeoJSONDumpSink(inner)

	if err := dump.InsertNodeFeature(NodeFeature{
		Geometry:    orb.Point{13.4, 52.5},
		NodeID:      "1",
		Specific:    "rivermouth",
		SpringError: true,
	}); err != nil {
		t.Fatalf("InsertNodeFeature() error = %v", err)
	}

	if len(inner.nodes) != 1 {
		t.Fatalf("wrapped sink got %d nodes, want 1 (dump must still forward)", len(inner.nodes))
	}

	path := filepath.Join(t.TempDir(), "nodes.geojson")
	if err := dump.WriteTo(path); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading dumped file: %v", err)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		t.Fatalf("unmarshaling dumped geojson: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %q, want FeatureCollection", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	if fc.Features[0].Properties["specific"] != "rivermouth" {
		t.Errorf("specific = %v, want rivermouth", fc.Features[0].Properties["specific"])
	}
}

func TestGeoJSONDumpSinkForwardsOtherFeatureKinds(t *testing.T) {
	inner := &fakeSink{}
	dump := NewGeoJSONDumpSink(inner)

	if err := dump.InsertWayFeature(WayFeature{WayID: 1}); err != nil {
		t.Fatalf("InsertWayFeature() error = %v", err)
	}
	if len(inner.ways) != 1 {
		t.Errorf("wrapped sink got %d ways, want 1", len(inner.ways))
	}
}
