// Package fetch pulls a bounding-box extract of waterway-relevant OSM
// data from an Overpass API endpoint and writes it out as OSM XML, so the
// inspect command has something to read without a full planet download.
package fetch

import (
	"fmt"
	"strconv"
	"strings"
)

// BBox is a WGS84 bounding box, south/west/north/east.
type BBox struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// ParseBBox parses "minlat,minlon,maxlat,maxlon".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("fetch: bbox must have 4 comma-separated values, got %d", len(parts))
	}
	values := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("fetch: invalid bbox value %q: %w", p, err)
		}
		values[i] = v
	}
	bbox := BBox{MinLat: values[0], MinLon: values[1], MaxLat: values[2], MaxLon: values[3]}
	if bbox.MinLat >= bbox.MaxLat || bbox.MinLon >= bbox.MaxLon {
		return BBox{}, fmt.Errorf("fetch: bbox min must be less than max (got %+v)", bbox)
	}
	return bbox, nil
}

// String renders the bbox in Overpass's south,west,north,east order.
func (b BBox) String() string {
	return fmt.Sprintf("%.7f,%.7f,%.7f,%.7f", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}
