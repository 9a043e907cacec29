package fetch

import (
	"fmt"
	"log/slog"
	"os"
)

// Extract fetches bbox from the configured endpoint and writes the result
// as OSM XML to outPath.
func Extract(cfg Config, bbox BBox, outPath string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("querying overpass", "endpoint", cfg.Endpoint, "bbox", bbox.String())

	fetcher := NewFetcher(cfg)
	result, err := fetcher.Fetch(bbox)
	if err != nil {
		return err
	}
	logger.Info("overpass returned", "ways", len(result.Ways), "relations", len(result.Relations))

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("fetch: creating output file: %w", err)
	}
	defer f.Close()

	if err := WriteOSMXML(f, result); err != nil {
		return err
	}
	return f.Close()
}
