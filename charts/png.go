package charts

import (
	"errors"
	"io"

	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/geo"
	"github.com/ufotracker/tracker/rank"
	"github.com/ufotracker/tracker/sighting"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNoEntries = errors.New("nothing to draw")

// RenderRankingPNG draws ranked entries as a bar chart. Each bar is labeled
// with its key; an empty key is drawn as "(unknown)".
func RenderRankingPNG(w io.Writer, title string, entries []rank.Entry, color string) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}
	fill := drawing.ParseColor(color)
	bars := make([]chart.Value, len(entries))
	maxCount := 0
	for i, e := range entries {
		label := e.Key
		if label == "" {
			label = "(unknown)"
		}
		bars[i] = chart.Value{
			Label: label,
			Value: float64(e.Count),
			Style: chart.Style{FillColor: fill, StrokeColor: fill},
		}
		maxCount = max(maxCount, e.Count)
	}

	bc := chart.BarChart{
		Title:  title,
		Width:  consts.PNGChartWidth,
		Height: consts.PNGChartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
		},
		BarWidth: 50,
		Bars:     bars,
	}
	return bc.Render(chart.PNG, w)
}

// RenderMapPNG plots sightings on an equirectangular canvas.
func RenderMapPNG(w io.Writer, sightings []sighting.Sighting) error {
	var xs, ys []float64
	for _, s := range sightings {
		if !plottable(s) {
			continue
		}
		p := geo.Project(s.Lat, s.Lng, 360, 180)
		xs = append(xs, p.X)
		ys = append(ys, 180-p.Y)
	}
	if len(xs) == 0 {
		return ErrNothingToPlot
	}

	marker := drawing.ParseColor(consts.MarkerColor)
	graph := chart.Chart{
		Title:  "Sightings Map",
		Width:  consts.PNGChartWidth,
		Height: consts.PNGChartWidth / 2,
		Background: chart.Style{
			FillColor: drawing.ParseColor(consts.ChartBackgroundColor),
		},
		XAxis: chart.XAxis{Range: &chart.ContinuousRange{Min: 0, Max: 360}},
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: 180}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "Sightings",
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColor:    marker,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return graph.Render(chart.PNG, w)
}
