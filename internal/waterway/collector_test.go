package waterway

import (
	"strconv"
	"testing"

	"github.com/paulmach/osm"

	"github.com/MeKo-Tech/osmwaterqa/internal/osmsource"
	"github.com/MeKo-Tech/osmwaterqa/internal/spatialdb"
)

type fakeSink struct {
	ways  []spatialdb.WayFeature
	nodes []spatialdb.NodeFeature
	rels  []spatialdb.RelationFeature
}

func (f *fakeSink) InsertPolygonFeature(spatialdb.PolygonFeature) error { return nil }

func (f *fakeSink) InsertRelationFeature(r spatialdb.RelationFeature) error {
	f.rels = append(f.rels, r)
	return nil
}

func (f *fakeSink) InsertWayFeature(w spatialdb.WayFeature) error {
	f.ways = append(f.ways, w)
	return nil
}

func (f *fakeSink) InsertNodeFeature(n spatialdb.NodeFeature) error {
	f.nodes = append(f.nodes, n)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) nodeRow(id osm.NodeID) (spatialdb.NodeFeature, bool) {
	want := nodeIDString(id)
	for _, n := range f.nodes {
		if n.NodeID == want {
			return n, true
		}
	}
	return spatialdb.NodeFeature{}, false
}

func riverWay(id osm.WayID, from, to osm.NodeID) *osm.Way {
	return &osm.Way{
		ID:    id,
		Tags:  osm.Tags{{Key: "waterway", Value: "river"}},
		Nodes: osm.WayNodes{{ID: from}, {ID: to}},
	}
}

func setLocations(locs *osmsource.LocationStore, ids ...osm.NodeID) {
	for i, id := range ids {
		locs.Set(id, float64(i), float64(i))
	}
}

func TestYJunctionRiver(t *testing.T) {
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)
	locs := osmsource.NewLocationStore(0)
	setLocations(locs, 1, 2, 3, 4)

	collector := New(store, locs, nil)
	collector.HandleStandaloneWay(riverWay(1, 1, 2))
	collector.HandleStandaloneWay(riverWay(2, 3, 2))
	collector.HandleStandaloneWay(riverWay(3, 2, 4))
	collector.AnalyseNodes()
	store.InsertErrorNodes()

	n2, ok := sink.nodeRow(2)
	if !ok {
		t.Fatal("node 2 should have been emitted")
	}
	if n2.DirectionError || n2.TypeError || n2.Specific != "" {
		t.Errorf("node 2 should be ordinary, got %+v", n2)
	}

	// Nothing in this test confirms nodes 1, 3, 4 via a way or polygon hit,
	// so InsertErrorNodes' switch_poss reinterprets them: possible-outflow
	// becomes a spring error, possible-rivermouth becomes an end error.
	n1, _ := sink.nodeRow(1)
	if n1.Specific != "" || !n1.SpringError {
		t.Errorf("node 1 = %+v, want specific=\"\" spring_error=true", n1)
	}
	n3, _ := sink.nodeRow(3)
	if n3.Specific != "" || !n3.SpringError {
		t.Errorf("node 3 = %+v, want specific=\"\" spring_error=true", n3)
	}
	n4, _ := sink.nodeRow(4)
	if n4.Specific != "" || !n4.EndError {
		t.Errorf("node 4 = %+v, want specific=\"\" end_error=true", n4)
	}
}

func TestRiverIntoStreamTypeError(t *testing.T) {
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)
	locs := osmsource.NewLocationStore(0)
	setLocations(locs, 1, 2, 3)

	collector := New(store, locs, nil)
	collector.HandleStandaloneWay(riverWay(1, 1, 2))
	streamWay := &osm.Way{
		ID:    2,
		Tags:  osm.Tags{{Key: "waterway", Value: "stream"}},
		Nodes: osm.WayNodes{{ID: 2}, {ID: 3}},
	}
	collector.HandleStandaloneWay(streamWay)
	collector.AnalyseNodes()
	store.InsertErrorNodes()

	n2, ok := sink.nodeRow(2)
	if !ok {
		t.Fatal("node 2 should have been emitted")
	}
	if !n2.TypeError {
		t.Errorf("node 2 should have type_error, got %+v", n2)
	}
}

func TestRenamedThroughWayNameError(t *testing.T) {
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)
	locs := osmsource.NewLocationStore(0)
	setLocations(locs, 1, 2, 3)

	collector := New(store, locs, nil)
	alpha := &osm.Way{
		ID:    1,
		Tags:  osm.Tags{{Key: "waterway", Value: "stream"}, {Key: "name", Value: "Alpha"}},
		Nodes: osm.WayNodes{{ID: 1}, {ID: 2}},
	}
	beta := &osm.Way{
		ID:    2,
		Tags:  osm.Tags{{Key: "waterway", Value: "stream"}, {Key: "name", Value: "Beta"}},
		Nodes: osm.WayNodes{{ID: 2}, {ID: 3}},
	}
	collector.HandleStandaloneWay(alpha)
	collector.HandleStandaloneWay(beta)
	collector.AnalyseNodes()
	store.InsertErrorNodes()

	n2, ok := sink.nodeRow(2)
	if !ok {
		t.Fatal("node 2 should have been emitted")
	}
	if !n2.NameError {
		t.Error("node 2 should have name_error")
	}
	if n2.DirectionError || n2.TypeError {
		t.Errorf("node 2 should not have other flags set, got %+v", n2)
	}
}

func TestOneNodeWayEmitsWayError(t *testing.T) {
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)
	locs := osmsource.NewLocationStore(0)
	setLocations(locs, 1)

	collector := New(store, locs, nil)
	lone := &osm.Way{
		ID:    1,
		Tags:  osm.Tags{{Key: "waterway", Value: "stream"}},
		Nodes: osm.WayNodes{{ID: 1}, {ID: 1}},
	}
	collector.HandleStandaloneWay(lone)

	if len(sink.ways) != 0 {
		t.Errorf("a one-node way must not produce a way row, got %d", len(sink.ways))
	}
	n1, ok := sink.nodeRow(1)
	if !ok {
		t.Fatal("expected a synthetic node-error row")
	}
	if !n1.WayError {
		t.Error("expected way_error=true")
	}
}

func TestStandaloneWaySkipsRelationMember(t *testing.T) {
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)
	locs := osmsource.NewLocationStore(0)
	setLocations(locs, 1, 2)

	collector := New(store, locs, nil)
	rel := &osm.Relation{
		ID:   10,
		Tags: osm.Tags{{Key: "type", Value: "waterway"}, {Key: "waterway", Value: "river"}},
		Members: []osm.Member{
			{Type: "way", Ref: 1, Role: ""},
		},
	}
	collector.RegisterRelation(rel)

	way := riverWay(1, 1, 2)
	collector.AddWay(way)
	if !collector.IsMember(1) {
		t.Fatal("way 1 should be registered as a relation member")
	}
	collector.HandleStandaloneWay(way)
	if len(sink.ways) != 0 {
		t.Error("a relation member must not also be emitted via the standalone-way path")
	}

	incomplete := collector.FinishRelations()
	if len(incomplete) != 0 {
		t.Errorf("relation should be complete, got incomplete=%v", incomplete)
	}
	if len(sink.ways) != 1 {
		t.Fatalf("got %d way rows after FinishRelations, want 1", len(sink.ways))
	}
	if len(sink.rels) != 1 {
		t.Fatalf("got %d relation rows, want 1", len(sink.rels))
	}
	if sink.rels[0].NowaterwayError {
		t.Error("the only member carries a waterway tag, so nowaterway_error should be false")
	}
}

func TestRegisterRelationSkipsBoundary(t *testing.T) {
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)
	locs := osmsource.NewLocationStore(0)
	setLocations(locs, 1, 2)

	collector := New(store, locs, nil)
	rel := &osm.Relation{
		ID:   10,
		Tags: osm.Tags{{Key: "type", Value: "boundary"}, {Key: "waterway", Value: "river"}},
		Members: []osm.Member{
			{Type: "way", Ref: 1, Role: ""},
		},
	}
	collector.RegisterRelation(rel)

	if collector.IsMember(1) {
		t.Error("a type=boundary relation must not register its members, even with a waterway tag")
	}

	way := riverWay(1, 1, 2)
	collector.HandleStandaloneWay(way)
	if len(sink.ways) != 1 {
		t.Fatalf("got %d way rows, want 1 (the way should fall through to the standalone path)", len(sink.ways))
	}
}

func TestFinishRelationsReportsIncompleteRelation(t *testing.T) {
	sink := &fakeSink{}
	store := spatialdb.New(sink, nil)
	locs := osmsource.NewLocationStore(0)
	setLocations(locs, 1, 2)

	collector := New(store, locs, nil)
	rel := &osm.Relation{
		ID:   11,
		Tags: osm.Tags{{Key: "type", Value: "waterway"}, {Key: "waterway", Value: "river"}},
		Members: []osm.Member{
			{Type: "way", Ref: 1, Role: ""},
			{Type: "way", Ref: 2, Role: ""},
		},
	}
	collector.RegisterRelation(rel)
	collector.AddWay(riverWay(1, 1, 2))
	// way 2 never arrives.

	incomplete := collector.FinishRelations()
	if len(incomplete) != 1 || incomplete[0] != 11 {
		t.Errorf("incomplete = %v, want [11]", incomplete)
	}
	if len(sink.rels) != 1 {
		t.Fatalf("the resolved member should still produce a relation row, got %d", len(sink.rels))
	}
}

func nodeIDString(id osm.NodeID) string {
	return strconv.FormatInt(int64(id), 10)
}
