// Package orchestrator drives the four strictly-ordered, single-threaded
// passes over one OSM extract: relation registration, the full scan that
// feeds both the waterway topology analysis and the area assembler,
// the ways-only false-positive sub-phase, and the final polygon-containment
// sub-phase plus error-map flush.
//
// Grounded on original_source/src/osmium_waterinspector.cpp and
// original_source/src/waterinspector.cpp's pass sequencing.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/osm"

	"github.com/MeKo-Tech/osmwaterqa/internal/area"
	"github.com/MeKo-Tech/osmwaterqa/internal/falsepositive"
	"github.com/MeKo-Tech/osmwaterqa/internal/osmsource"
	"github.com/MeKo-Tech/osmwaterqa/internal/spatialdb"
	"github.com/MeKo-Tech/osmwaterqa/internal/waterway"
)

// Result summarizes a completed run for the caller to report.
type Result struct {
	// IncompleteRelationIDs lists every relation (waterway or multipolygon)
	// that could not be fully assembled — a missing member, or a member
	// chain that never closed into a ring.
	IncompleteRelationIDs []int64
}

// RunFile opens path and runs all four passes over it, writing every
// emitted feature through store. logger may be nil.
func RunFile(ctx context.Context, path string, store *spatialdb.Store, logger *slog.Logger) (Result, error) {
	reader, err := osmsource.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: opening %s: %w", path, err)
	}
	defer reader.Close()
	return Run(ctx, reader, store, logger)
}

// Run executes all four passes against reader, writing every emitted
// feature through store. logger may be nil. reader is driven through its
// ScanRelations/ScanFull/ScanWays methods exactly once each, in that order.
func Run(ctx context.Context, reader osmsource.Reader, store *spatialdb.Store, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	locs := osmsource.NewLocationStore(0)
	assembler := osmsource.NewAssembler()
	collector := waterway.New(store, locs, logger)
	areaHandler := area.New(store, logger)
	fpIndicator := falsepositive.New(store, logger)

	logger.Info("pass 1: registering relations")
	if err := reader.ScanRelations(ctx, func(rel *osm.Relation) error {
		collector.RegisterRelation(rel)
		assembler.RegisterRelation(rel)
		return nil
	}); err != nil {
		return Result{}, fmt.Errorf("orchestrator: pass 1: %w", err)
	}

	logger.Info("pass 2: full scan")
	var incomplete []osm.RelationID
	if err := reader.ScanFull(ctx, osmsource.FullHandler{
		Node: func(n *osm.Node) {
			locs.Set(n.ID, n.Lat, n.Lon)
		},
		Way: func(w *osm.Way) {
			isAreaMember := assembler.IsMember(w.ID)
			isWaterwayMember := collector.IsMember(w.ID)

			if isWaterwayMember {
				collector.AddWay(w)
			} else {
				collector.HandleStandaloneWay(w)
			}
			if isAreaMember {
				assembler.AddWay(w)
			} else if a, ok := osmsource.StandaloneArea(w, locs); ok {
				areaHandler.Handle(a)
			}
		},
	}); err != nil {
		return Result{}, fmt.Errorf("orchestrator: pass 2: %w", err)
	}

	incomplete = append(incomplete, collector.FinishRelations()...)
	logger.Info("pass 2: analysing node topology")
	collector.AnalyseNodes()

	areas, incompleteAreas := assembler.Finish(locs)
	incomplete = append(incomplete, incompleteAreas...)
	for _, a := range areas {
		areaHandler.Handle(a)
	}
	areaHandler.CompletePolygonTree()

	logger.Info("pass 3: false-positive elimination over ways")
	if err := reader.ScanWays(ctx, func(w *osm.Way) error {
		fpIndicator.CheckWay(w)
		return nil
	}); err != nil {
		return Result{}, fmt.Errorf("orchestrator: pass 3: %w", err)
	}

	logger.Info("pass 4: false-positive elimination over polygons")
	fpIndicator.CheckPolygons()
	store.InsertErrorNodes()

	ids := make([]int64, len(incomplete))
	for i, id := range incomplete {
		ids[i] = int64(id)
	}
	if len(ids) > 0 {
		logger.Warn("incomplete relations", "count", len(ids), "ids", ids)
	}
	return Result{IncompleteRelationIDs: ids}, nil
}
