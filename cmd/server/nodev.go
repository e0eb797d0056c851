//go:build !dev

package main

import (
	"github.com/go-chi/chi/v5"
	"github.com/ufotracker/tracker/source"
)

func registerDevRoutes(chi.Router, source.Source, int) {}
