// Command maintenance runs one maintenance pass and exits. Deploy it
// on a scheduler; the graph never schedules itself.
package main

import (
	"context"
	"log"
	"time"

	"memgraph/infrastructure/config"
	"memgraph/infrastructure/di"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Logger.Sync()

	start := time.Now()
	report, err := container.Graph.TriggerMaintenance(ctx)
	if err != nil {
		container.Logger.Fatal("maintenance pass failed", zap.Error(err))
	}

	container.Logger.Info("maintenance pass complete",
		zap.Int("expiredNodes", report.ExpiredNodes),
		zap.Int("expiredGrants", report.ExpiredGrants),
		zap.Int("rollups", report.Rollups),
		zap.Int("rollupTimeouts", report.RollupTimeouts),
		zap.Int("skippedLocked", report.SkippedLocked),
		zap.Duration("duration", time.Since(start)),
	)
}
