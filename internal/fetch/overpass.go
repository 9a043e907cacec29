package fetch

import (
	"fmt"
	"net/http"

	"github.com/MeKo-Christian/go-overpass"
)

// Config controls the Overpass client used for a bbox extract.
type Config struct {
	Endpoint    string
	RetryConfig *overpass.RetryConfig
	HTTPClient  *http.Client
}

// DefaultConfig targets the public Overpass API with a conservative
// retry policy.
func DefaultConfig() Config {
	retry := overpass.DefaultRetryConfig()
	return Config{
		Endpoint:    "https://overpass-api.de/api/interpreter",
		RetryConfig: &retry,
		HTTPClient:  http.DefaultClient,
	}
}

// Fetcher issues a single Overpass query for a bbox extract.
type Fetcher struct {
	client overpass.Client
}

// NewFetcher builds a Fetcher against cfg, filling in endpoint and HTTP
// client defaults when left zero.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://overpass-api.de/api/interpreter"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	var client overpass.Client
	if cfg.RetryConfig != nil {
		client = overpass.NewWithRetry(cfg.Endpoint, 1, cfg.HTTPClient, *cfg.RetryConfig)
	} else {
		client = overpass.NewWithSettings(cfg.Endpoint, 1, cfg.HTTPClient)
	}
	return &Fetcher{client: client}
}

// buildQuery assembles an Overpass QL query for every tag combination
// tagcheck treats as waterway-relevant within bbox: linear waterways,
// coastlines, water areas, reservoir/basin landuse, and multipolygon
// relations carrying any of those tags.
func buildQuery(bbox BBox) string {
	b := bbox.String()
	return fmt.Sprintf(`[out:json][timeout:180];
(
  way["waterway"](%[1]s);
  way["natural"="coastline"](%[1]s);
  way["natural"="water"](%[1]s);
  way["landuse"~"^(reservoir|basin)$"](%[1]s);
  relation["waterway"](%[1]s);
  relation["natural"="water"](%[1]s);
  relation["type"="multipolygon"]["natural"="coastline"](%[1]s);
  relation["type"="multipolygon"]["landuse"~"^(reservoir|basin)$"](%[1]s);
);
out body geom qt;
`, b)
}

// Fetch runs the waterway extract query for bbox and returns the raw
// Overpass result. Query() itself does not accept a context; callers that
// need cancellation should race this call against ctx.Done() at a higher
// level, since this client version predates context support.
func (f *Fetcher) Fetch(bbox BBox) (*overpass.Result, error) {
	result, err := f.client.Query(buildQuery(bbox))
	if err != nil {
		return nil, fmt.Errorf("fetch: overpass query failed: %w", err)
	}
	return &result, nil
}
