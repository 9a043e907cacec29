package fetch

import (
	"bytes"
	"encoding/xml"
	"testing"

	"github.com/MeKo-Christian/go-overpass"
)

// testDoc mirrors just enough of the OSM XML schema to assert on the
// output shape; the production writer builds the real document out of
// osm.OSM/osm.Node/osm.Way/osm.Relation.
type testDoc struct {
	XMLName xml.Name   `xml:"osm"`
	Nodes   []testNode `xml:"node"`
	Ways    []testWay  `xml:"way"`
}

type testNode struct {
	ID  int64   `xml:"id,attr"`
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

type testWay struct {
	ID int64   `xml:"id,attr"`
	Nd []testNd `xml:"nd"`
}

type testNd struct {
	Ref int64 `xml:"ref,attr"`
}

func TestWriteOSMXMLSharesCoincidentNodes(t *testing.T) {
	result := &overpass.Result{
		Ways: map[int64]*overpass.Way{
			1: {
				ID:   1,
				Tags: map[string]string{"waterway": "river"},
				Geometry: []overpass.Point{
					{Lat: 52.0, Lon: 13.0},
					{Lat: 52.1, Lon: 13.1},
				},
			},
			2: {
				ID:   2,
				Tags: map[string]string{"waterway": "stream"},
				Geometry: []overpass.Point{
					{Lat: 52.1, Lon: 13.1},
					{Lat: 52.2, Lon: 13.2},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteOSMXML(&buf, result); err != nil {
		t.Fatalf("WriteOSMXML() error = %v", err)
	}

	var doc testDoc
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid XML: %v\n%s", err, buf.String())
	}

	if len(doc.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3 (one shared between the two ways)", len(doc.Nodes))
	}
	if len(doc.Ways) != 2 {
		t.Fatalf("got %d ways, want 2", len(doc.Ways))
	}
	if doc.Ways[0].Nd[1].Ref != doc.Ways[1].Nd[0].Ref {
		t.Error("the coincident endpoint should resolve to the same synthetic node id on both ways")
	}
}

func TestWriteOSMXMLSortsTagsDeterministically(t *testing.T) {
	result := &overpass.Result{
		Ways: map[int64]*overpass.Way{
			1: {
				ID:       1,
				Tags:     map[string]string{"waterway": "river", "name": "Spree"},
				Geometry: []overpass.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}},
			},
		},
	}

	var buf1, buf2 bytes.Buffer
	if err := WriteOSMXML(&buf1, result); err != nil {
		t.Fatal(err)
	}
	if err := WriteOSMXML(&buf2, result); err != nil {
		t.Fatal(err)
	}
	if buf1.String() != buf2.String() {
		t.Error("WriteOSMXML should be deterministic across runs")
	}
}
