package main

import (
	"context"

	"github.com/ufotracker/tracker/charts"
	"github.com/ufotracker/tracker/logging"
	"github.com/ufotracker/tracker/observability"
	"github.com/ufotracker/tracker/source"
	"github.com/ufotracker/tracker/view"
)

type tasks struct {
	source    source.Source
	limit     int
	outputDir string
	assets    *view.AssetChecker
	metrics   *observability.Collector
	log       logging.Logger
}

func (t *tasks) generateCharts(ctx context.Context) func() {
	return func() {
		t.log.Info(ctx, "exporting charts JSON", logging.String("dir", t.outputDir))
		err := charts.ExportChartsJSON(ctx, t.source, t.limit, t.outputDir)
		t.metrics.RecordChartExport(err)
		if err != nil {
			t.log.Error(ctx, "failed to export charts JSON", logging.Err(err))
		}
	}
}

func (t *tasks) probeAssets(ctx context.Context) func() {
	return func() {
		if err := t.assets.Refresh(ctx); err != nil {
			t.log.Warn(ctx, "rich renderer assets unavailable, new views will degrade", logging.Err(err))
			return
		}
		t.log.Debug(ctx, "rich renderer assets reachable")
	}
}
