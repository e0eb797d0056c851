package summary

import (
	"time"

	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/rank"
	"github.com/ufotracker/tracker/sighting"
)

// Summary is what the statistics sidebar shows.
type Summary struct {
	Total             int          `json:"total"`
	DistinctCountries int          `json:"distinctCountries"`
	DistinctShapes    int          `json:"distinctShapes"`
	TopShapes         []rank.Entry `json:"topShapes"`
	TopCountries      []rank.Entry `json:"topCountries"`
	TopCities         []rank.Entry `json:"topCities"`
	Oldest            *time.Time   `json:"oldest,omitempty"`
	Newest            *time.Time   `json:"newest,omitempty"`
	Failed            bool         `json:"failed,omitempty"`
}

// Options sets how many entries each panel keeps.
type Options struct {
	TopShapes    int
	TopCountries int
	TopCities    int
}

func DefaultOptions() Options {
	return Options{
		TopShapes:    consts.TopShapesCount,
		TopCountries: consts.TopCountriesCount,
		TopCities:    consts.TopCitiesCount,
	}
}

// WithTop uses the same limit for every panel.
func WithTop(n int) Options {
	return Options{TopShapes: n, TopCountries: n, TopCities: n}
}

// SummarizeData ranks the sightings for the sidebar. An empty collection
// yields zero totals and empty panels.
func SummarizeData(sightings []sighting.Sighting, opts Options) Summary {
	summary := Summary{
		Total:             len(sightings),
		DistinctCountries: rank.Distinct(sightings, sighting.CountryOf),
		DistinctShapes:    rank.Distinct(sightings, sighting.ShapeOf),
		TopShapes:         rank.Rank(sightings, sighting.ShapeOf, opts.TopShapes),
		TopCountries:      rank.Rank(sightings, sighting.CountryOf, opts.TopCountries),
		TopCities:         rank.Rank(sightings, sighting.CityOf, opts.TopCities),
	}
	for _, s := range sightings {
		t := s.Time.Time
		if summary.Oldest == nil || t.Before(*summary.Oldest) {
			summary.Oldest = &t
		}
		if summary.Newest == nil || t.After(*summary.Newest) {
			summary.Newest = &t
		}
	}
	return summary
}

// Panel is one ranked list of the sidebar with its bar widths.
type Panel struct {
	Title string
	Rows  []PanelRow
}

type PanelRow struct {
	Position int
	Key      string
	Count    int
	Share    float64
}

// Panels lays the summary out in display order.
func (s Summary) Panels() []Panel {
	return []Panel{
		newPanel("Most Common Shapes", s.TopShapes, s.Total),
		newPanel("Hotspots", s.TopCountries, s.Total),
		newPanel("Top Cities", s.TopCities, s.Total),
	}
}

func newPanel(title string, entries []rank.Entry, total int) Panel {
	rows := make([]PanelRow, len(entries))
	for i, e := range entries {
		rows[i] = PanelRow{Position: i + 1, Key: e.Key, Count: e.Count, Share: e.Share(total)}
	}
	return Panel{Title: title, Rows: rows}
}

// Summarize is SummarizeData with one limit for every panel.
func Summarize(sightings []sighting.Sighting, topN int) Summary {
	return SummarizeData(sightings, WithTop(topN))
}
