package main

import (
	"context"
	"log"
	"path/filepath"

	"github.com/ufotracker/tracker/charts"
	"github.com/ufotracker/tracker/config"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/db"
	"github.com/ufotracker/tracker/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	var src source.Source = source.NewStatic(source.Demo())
	if cfg.Source.Kind == consts.SourceSQLite {
		dbConn, err := db.OpenDB(cfg.Source.DBPath)
		if err != nil {
			log.Fatalf("Error opening database: %v", err)
		}
		defer dbConn.Close()
		src = &source.SQLite{DB: dbConn}
	}

	chartDataDir := filepath.Join(cfg.DataFolder, consts.ChartDataDir)

	log.Printf("Generating %s in %s", consts.ChartsJSONFile, chartDataDir)
	if err := charts.ExportChartsJSON(context.Background(), src, cfg.Source.Limit, chartDataDir); err != nil {
		log.Fatalf("Error exporting charts JSON: %v", err)
	}
	log.Print("Charts JSON generated successfully")
}
