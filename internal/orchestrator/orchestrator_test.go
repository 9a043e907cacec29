package orchestrator

import (
	"context"
	"testing"

	"github.com/paulmach/osm"

	"github.com/MeKo-Tech/osmwaterqa/internal/osmsource"
	"github.com/MeKo-Tech/osmwaterqa/internal/spatialdb"
)

type fakeReader struct {
	nodes     []*osm.Node
	ways      []*osm.Way
	relations []*osm.Relation
}

func (r *fakeReader) ScanRelations(_ context.Context, fn func(*osm.Relation) error) error {
	for _, rel := range r.relations {
		if err := fn(rel); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeReader) ScanFull(_ context.Context, h osmsource.FullHandler) error {
	for _, n := range r.nodes {
		if h.Node != nil {
			h.Node(n)
		}
	}
	for _, w := range r.ways {
		if h.Way != nil {
			h.Way(w)
		}
	}
	for _, rel := range r.relations {
		if h.Relation != nil {
			h.Relation(rel)
		}
	}
	return nil
}

func (r *fakeReader) ScanWays(_ context.Context, fn func(*osm.Way) error) error {
	for _, w := range r.ways {
		if err := fn(w); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeSink struct {
	ways     []spatialdb.WayFeature
	nodes    []spatialdb.NodeFeature
	polygons []spatialdb.PolygonFeature
}

func (f *fakeSink) InsertPolygonFeature(p spatialdb.PolygonFeature) error {
	f.polygons = append(f.polygons, p)
	return nil
}
func (f *fakeSink) InsertRelationFeature(spatialdb.RelationFeature) error { return nil }
func (f *fakeSink) InsertWayFeature(w spatialdb.WayFeature) error {
	f.ways = append(f.ways, w)
	return nil
}
func (f *fakeSink) InsertNodeFeature(n spatialdb.NodeFeature) error {
	f.nodes = append(f.nodes, n)
	return nil
}
func (f *fakeSink) Close() error { return nil }

func node(id osm.NodeID, lat, lon float64) *osm.Node {
	return &osm.Node{ID: id, Lat: lat, Lon: lon}
}

func TestRunWritesWaysAndNodesForStandaloneRiver(t *testing.T) {
	reader := &fakeReader{
		nodes: []*osm.Node{node(1, 0, 0), node(2, 0, 1), node(3, 1, 0), node(4, 1, 1)},
		ways: []*osm.Way{
			{ID: 1, Tags: osm.Tags{{Key: "waterway", Value: "river"}}, Nodes: osm.WayNodes{{ID: 1}, {ID: 2}}},
			{ID: 2, Tags: osm.Tags{{Key: "waterway", Value: "river"}}, Nodes: osm.WayNodes{{ID: 3}, {ID: 2}}},
			{ID: 3, Tags: osm.Tags{{Key: "waterway", Value: "river"}}, Nodes: osm.WayNodes{{ID: 2}, {ID: 4}}},
		},
	}
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)

	result, err := Run(context.Background(), reader, store, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.IncompleteRelationIDs) != 0 {
		t.Errorf("unexpected incomplete relations: %v", result.IncompleteRelationIDs)
	}
	if len(sink.ways) != 3 {
		t.Fatalf("got %d way rows, want 3", len(sink.ways))
	}
	if len(sink.nodes) != 4 {
		t.Fatalf("got %d node rows, want 4 (all nodes finalised after the error-map flush)", len(sink.nodes))
	}
}

func TestRunReportsIncompleteWaterwayRelation(t *testing.T) {
	reader := &fakeReader{
		nodes: []*osm.Node{node(1, 0, 0), node(2, 0, 1)},
		ways: []*osm.Way{
			{ID: 1, Tags: osm.Tags{{Key: "waterway", Value: "river"}}, Nodes: osm.WayNodes{{ID: 1}, {ID: 2}}},
		},
		relations: []*osm.Relation{
			{
				ID:   10,
				Tags: osm.Tags{{Key: "type", Value: "waterway"}, {Key: "waterway", Value: "river"}},
				Members: []osm.Member{
					{Type: "way", Ref: 1, Role: ""},
					{Type: "way", Ref: 2, Role: ""},
				},
			},
		},
	}
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)

	result, err := Run(context.Background(), reader, store, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.IncompleteRelationIDs) != 1 || result.IncompleteRelationIDs[0] != 10 {
		t.Errorf("IncompleteRelationIDs = %v, want [10]", result.IncompleteRelationIDs)
	}
}

func TestRunEmitsWaterAreaPolygon(t *testing.T) {
	reader := &fakeReader{
		nodes: []*osm.Node{node(1, 0, 0), node(2, 0, 10), node(3, 10, 10), node(4, 10, 0)},
		ways: []*osm.Way{
			{
				ID:    1,
				Tags:  osm.Tags{{Key: "natural", Value: "water"}},
				Nodes: osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 1}},
			},
		},
	}
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)

	if _, err := Run(context.Background(), reader, store, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sink.polygons) != 1 {
		t.Fatalf("got %d polygon rows, want 1", len(sink.polygons))
	}
	if sink.polygons[0].WayID != 1 {
		t.Errorf("WayID = %d, want 1", sink.polygons[0].WayID)
	}
}
