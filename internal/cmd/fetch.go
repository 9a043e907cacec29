package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/osmwaterqa/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch OUTFILE",
	Short: "Download a bounding-box waterway extract from Overpass",
	Long: `fetch queries an Overpass API endpoint for every waterway, coastline
and water-area feature within --bbox and writes the result as OSM XML to
OUTFILE, suitable input for "inspect".`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("bbox", "", "Bounding box: minlat,minlon,maxlat,maxlon")
	fetchCmd.Flags().String("endpoint", "", "Overpass API endpoint (default: overpass-api.de)")
	if err := fetchCmd.MarkFlagRequired("bbox"); err != nil {
		panic(fmt.Sprintf("failed to mark flag required: %v", err))
	}

	if err := viper.BindPFlag("fetch.bbox", fetchCmd.Flags().Lookup("bbox")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("fetch.endpoint", fetchCmd.Flags().Lookup("endpoint")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	outFile := args[0]
	bboxStr := viper.GetString("fetch.bbox")
	endpoint := viper.GetString("fetch.endpoint")

	bbox, err := fetch.ParseBBox(bboxStr)
	if err != nil {
		return err
	}

	cfg := fetch.DefaultConfig()
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}

	return fetch.Extract(cfg, bbox, outFile, logger)
}
