package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/osmtools/mapsplit-go/internal/config"
	"github.com/osmtools/mapsplit-go/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	logFile         string
	metricsInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "mapsplit",
	Short: "Split an OSM PBF file into per-tile extracts",
	Long: `mapsplit splits a planet or regional OSM PBF file into one extract per
slippy-map tile at a given zoom level.

Elements are assigned to every tile their geometry touches (with optional
border enlargement), relations can pull their full membership into every
tile they're modified in, and output can be either one file per tile or
a single MBTiles database.`,
	Args: cobra.NoArgs,
	RunE: runSplit,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Interval for system metrics logging (e.g., 10s, 1m)")

	rootCmd.Flags().StringVarP(&cfg.InputFile, "input", "i", "", "Path to input OSM PBF file (required)")
	rootCmd.Flags().StringVarP(&cfg.OutputPath, "output", "o", "", "Tile filename pattern (with %z/%x/%y) or MBTiles path (required)")
	rootCmd.Flags().IntVarP(&cfg.Zoom, "zoom", "z", cfg.Zoom, "Base zoom level, 0-16")
	rootCmd.Flags().Float64VarP(&cfg.Border, "border", "b", cfg.Border, "Tile border enlargement, 0.0-1.0")
	rootCmd.Flags().StringVarP(&cfg.PolygonFile, "polygon", "p", "", "Path to polygon file restricting output to an area")
	rootCmd.Flags().StringVarP(&cfg.DateFile, "date", "d", "", "Path to date file for incremental runs")
	rootCmd.Flags().BoolVarP(&cfg.Metadata, "metadata", "m", false, "Keep version and timestamp metadata in output")
	rootCmd.Flags().BoolVarP(&cfg.Complete, "complete", "c", false, "Full tile completion for every relation")
	rootCmd.Flags().BoolVarP(&cfg.CompleteAreas, "complete-areas", "C", false, "Full tile completion for multipolygon relations only")
	rootCmd.Flags().BoolVarP(&cfg.MBTiles, "mbtiles", "M", false, "Write a single MBTiles database instead of per-tile files")
	rootCmd.Flags().IntVarP(&cfg.MaxFiles, "maxfiles", "f", cfg.MaxFiles, "Maximum simultaneously open tile encoders")
	rootCmd.Flags().StringVarP(&sizeFlag, "size", "s", "", "Initial map capacities as n,w,r")
	rootCmd.Flags().StringVar(&maxIDsFlag, "max-ids", "", "Maximum ids as n,w,r; selects the array-backed map per type")
	rootCmd.Flags().BoolVar(&cfg.MmapIndex, "mmap-index", false, "Back array-backed maps with a memory-mapped scratch file instead of heap memory")
	rootCmd.Flags().StringVar(&cfg.MmapDir, "mmap-dir", "", "Directory for mmap scratch files (default: system temp dir)")
	rootCmd.Flags().IntVarP(&cfg.NodeLimit, "optimize", "O", 0, "Node-count limit below which sparse tiles are coalesced, 0 disables")
	rootCmd.Flags().BoolVarP(&cfg.Timing, "timing", "t", false, "Log background resource usage for the duration of the run")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
