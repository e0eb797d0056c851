package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ufotracker/tracker/charts"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/logging"
	"github.com/ufotracker/tracker/rank"
	"github.com/ufotracker/tracker/sighting"
	"github.com/ufotracker/tracker/source"
	"github.com/ufotracker/tracker/summary"
)

type handlers struct {
	deps Deps
	log  logging.Logger
}

func newHandlers(deps Deps) *handlers {
	log := deps.Logger
	if log == nil {
		log = logging.Noop()
	}
	return &handlers{deps: deps, log: log}
}

// load fetches sightings for a request and counts failures.
func (h *handlers) load(r *http.Request, limit int) source.Result {
	res := source.Load(r.Context(), h.deps.Source, limit, h.log)
	if res.Failed {
		h.deps.Metrics.RecordSourceFailure(h.deps.SourceKind)
	}
	return res
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (h *handlers) sightings(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, h.deps.Limit)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := h.load(r, limit)
	if res.Failed {
		respondWithError(w, http.StatusServiceUnavailable, "Failed to load sightings")
		return
	}
	respondWithJSON(w, http.StatusOK, res.Sightings)
}

func (h *handlers) sighting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := h.load(r, 0)
	if res.Failed {
		respondWithError(w, http.StatusServiceUnavailable, "Failed to load sightings")
		return
	}
	for _, s := range res.Sightings {
		if s.ID == id {
			respondWithJSON(w, http.StatusOK, s)
			return
		}
	}
	respondWithError(w, http.StatusNotFound, "Sighting not found")
}

func (h *handlers) geoJSON(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, h.deps.Limit)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := h.load(r, limit)
	if res.Failed {
		respondWithError(w, http.StatusServiceUnavailable, "Failed to load sightings")
		return
	}
	data, err := charts.SightingsFeatureCollection(res.Sightings).MarshalJSON()
	if err != nil {
		h.log.Error(r.Context(), "failed to encode geojson", logging.Err(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to encode sightings")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// summary never fails: a source failure shows up as an empty summary with
// the failed flag set.
func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	opts := summary.DefaultOptions()
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "top must be an integer")
			return
		}
		opts = summary.WithTop(max(n, 0))
	}
	res := h.load(r, h.deps.Limit)
	s := summary.SummarizeData(res.Sightings, opts)
	s.Failed = res.Failed
	respondWithJSON(w, http.StatusOK, s)
}

func (h *handlers) rankingPNG(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	keyOf, ok := sighting.KeyFor(field)
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Unknown field %q", field))
		return
	}
	res := h.load(r, h.deps.Limit)
	if res.Failed {
		respondWithError(w, http.StatusServiceUnavailable, "Failed to load sightings")
		return
	}

	color := consts.ShapeBarColor
	if field != "shape" && field != "shapes" {
		color = consts.CountryBarColor
	}
	entries := rank.Rank(res.Sightings, keyOf, consts.TopShapesCount)
	var buf bytes.Buffer
	if err := charts.RenderRankingPNG(&buf, "Top "+field, entries, color); err != nil {
		h.writePNGError(w, r, err)
		return
	}
	writePNG(w, buf.Bytes())
}

func (h *handlers) mapPNG(w http.ResponseWriter, r *http.Request) {
	res := h.load(r, h.deps.Limit)
	if res.Failed {
		respondWithError(w, http.StatusServiceUnavailable, "Failed to load sightings")
		return
	}
	var buf bytes.Buffer
	if err := charts.RenderMapPNG(&buf, res.Sightings); err != nil {
		h.writePNGError(w, r, err)
		return
	}
	writePNG(w, buf.Bytes())
}

func (h *handlers) writePNGError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, charts.ErrNoEntries) || errors.Is(err, charts.ErrNothingToPlot) {
		respondWithError(w, http.StatusNotFound, "No data available")
		return
	}
	h.log.Error(r.Context(), "failed to render png", logging.Err(err))
	respondWithError(w, http.StatusInternalServerError, "Failed to render chart")
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// parseLimit reads ?limit=, clamped to MaxFetchLimit. Zero asks for every
// sighting.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %q", raw)
	}
	return min(n, consts.MaxFetchLimit), nil
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
