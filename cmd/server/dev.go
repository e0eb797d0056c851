//go:build dev

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ufotracker/tracker/charts"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/source"
)

func registerDevRoutes(r chi.Router, src source.Source, limit int) {
	// Static files for charts
	r.Handle("/chartdata/*", http.StripPrefix("/chartdata/", http.FileServer(http.Dir(consts.ChartDataDir))))

	// Charts endpoint, renders server-side
	r.Get("/charts", charts.ChartsHandler(src, limit))
}
