package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/osmtools/mapsplit-go/internal/config"
	"github.com/osmtools/mapsplit-go/internal/logger"
	"github.com/osmtools/mapsplit-go/internal/run"
	"github.com/spf13/cobra"
)

var (
	sizeFlag   string
	maxIDsFlag string
)

func runSplit(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	sizes, err := config.ParseMapSizes(sizeFlag)
	if err != nil {
		exitWithError("invalid --size", err)
	}
	cfg.Sizes = sizes

	maxIDs, err := config.ParseMapSizes(maxIDsFlag)
	if err != nil {
		exitWithError("invalid --max-ids", err)
	}
	cfg.MaxIDs = maxIDs

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	log.Info("starting split",
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.OutputPath),
		zap.Int("zoom", cfg.Zoom),
		zap.Float64("border", cfg.Border),
	)

	start := time.Now()
	stats, err := run.Run(context.Background(), cfg)
	if err != nil {
		exitWithError("split failed", err)
	}
	elapsed := time.Since(start)

	log.Info("split finished",
		zap.Duration("duration", elapsed.Round(time.Second)),
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("relations", stats.Relations),
		zap.Int("tiles", stats.TilesWritten),
	)
	return nil
}
