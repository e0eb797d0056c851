package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/ufotracker/tracker/config"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/listing"
	"github.com/ufotracker/tracker/logging"
	"github.com/ufotracker/tracker/sighting"
	"github.com/ufotracker/tracker/summary"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"listDate": func(t sighting.Timestamp) string {
		return t.Format(consts.ListDateFormat)
	},
	"shapeColor": sighting.ShapeColor,
	"percent": func(share float64) string {
		return fmt.Sprintf("%.0f%%", share)
	},
}).ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Summary    summary.Summary
	Panels     []summary.Panel
	Sightings  []sighting.Sighting
	Query      string
	Sort       listing.SortBy
	Failed     bool
	AssetsHost string
	Updated    time.Time
}

// Empty is true when there is nothing at all to show, as opposed to a
// filter that matched nothing.
func (p pageData) Empty() bool {
	return p.Summary.Total == 0
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	res := h.load(r, h.deps.Limit)
	query := r.URL.Query().Get("q")
	sortBy := listing.ParseSort(r.URL.Query().Get("sort"))

	s := summary.SummarizeData(res.Sightings, summary.DefaultOptions())
	s.Failed = res.Failed
	data := pageData{
		Summary:    s,
		Panels:     s.Panels(),
		Sightings:  listing.Apply(res.Sightings, query, sortBy),
		Query:      query,
		Sort:       sortBy,
		Failed:     res.Failed,
		AssetsHost: config.AssetsBaseURL(h.deps.AssetsHost),
		Updated:    time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.log.Error(r.Context(), "failed to render page", logging.Err(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
