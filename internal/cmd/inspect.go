package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/osmwaterqa/internal/orchestrator"
	"github.com/MeKo-Tech/osmwaterqa/internal/spatialdb"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect INFILE OUTFILE",
	Short: "Scan an OSM extract for waterway errors and write a spatial database",
	Long: `inspect runs the four waterway-topology passes over INFILE (a PBF or
XML OSM extract, or "-" for standard input) and writes every polygon,
relation, way and node feature it finds to OUTFILE, a spatial SQLite
database.`,
	Args: cobra.ExactArgs(2),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolP("debug", "d", false, "Enable assembler verbosity")
	inspectCmd.Flags().String("debug-geojson", "", "Also write the node error layer to this GeoJSON path")
	if err := viper.BindPFlag("inspect.debug", inspectCmd.Flags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("inspect.debug_geojson", inspectCmd.Flags().Lookup("debug-geojson")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	inFile, outFile := args[0], args[1]
	debug := viper.GetBool("inspect.debug")
	geojsonPath := viper.GetString("inspect.debug_geojson")

	runLogger := logger
	if debug {
		runLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	sink, err := spatialdb.OpenSQLiteSink(outFile)
	if err != nil {
		return fmt.Errorf("inspect: opening output database: %w", err)
	}

	var dump *spatialdb.GeoJSONDumpSink
	var finalSink spatialdb.Sink = sink
	if geojsonPath != "" {
		dump = spatialdb.NewGeoJSONDumpSink(sink)
		finalSink = dump
	}

	store := spatialdb.New(finalSink, runLogger)
	defer store.Close()

	logger.Info("inspecting extract", "infile", inFile, "outfile", outFile)
	result, err := orchestrator.RunFile(context.Background(), inFile, store, runLogger)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	if len(result.IncompleteRelationIDs) > 0 {
		logger.Warn("incomplete relations", "count", len(result.IncompleteRelationIDs), "ids", result.IncompleteRelationIDs)
	}

	if dump != nil {
		if err := dump.WriteTo(geojsonPath); err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		logger.Info("wrote debug geojson", "path", geojsonPath)
	}
	return nil
}
