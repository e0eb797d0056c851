package charts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/geo"
	"github.com/ufotracker/tracker/rank"
	"github.com/ufotracker/tracker/sighting"
	"github.com/ufotracker/tracker/source"
	"github.com/ufotracker/tracker/summary"
)

// ErrNothingToPlot is returned when no sighting has usable coordinates.
var ErrNothingToPlot = errors.New("no sightings with plottable coordinates")

type optionSource interface {
	Validate()
	JSON() map[string]interface{}
}

func options(c optionSource) map[string]interface{} {
	c.Validate()
	return c.JSON()
}

func plottable(s sighting.Sighting) bool {
	return !math.IsNaN(s.Lat) && !math.IsNaN(s.Lng) &&
		!math.IsInf(s.Lat, 0) && !math.IsInf(s.Lng, 0)
}

func buildShapesChart(s summary.Summary) *charts.Pie {
	data := make([]opts.PieData, 0, len(s.TopShapes))
	for _, e := range s.TopShapes {
		data = append(data, opts.PieData{
			Name:      e.Key,
			Value:     e.Count,
			ItemStyle: &opts.ItemStyle{Color: sighting.ShapeColor(e.Key)},
		})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           consts.ChartWidth,
			Height:          consts.ChartHeight,
			BackgroundColor: consts.ChartBackgroundColor,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      "Most Common Shapes",
			TitleStyle: &opts.TextStyle{Color: consts.ChartTextColor},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: "{b}: {c} ({d}%)",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Right:     "10",
			Orient:    "vertical",
			TextStyle: &opts.TextStyle{Color: consts.ChartTextColor},
			Type:      "scroll",
		}),
	)

	pie.AddSeries("Shape", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
			charts.WithPieChartOpts(opts.PieChart{
				Radius: []string{"40%", "75%"},
				Center: []string{"40%", "50%"},
			}),
		)

	return pie
}

func buildCountriesChart(s summary.Summary) *charts.Bar {
	labels := make([]string, len(s.TopCountries))
	data := make([]opts.BarData, len(s.TopCountries))
	for i, e := range s.TopCountries {
		labels[i] = e.Key
		data[i] = opts.BarData{Value: e.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           consts.ChartWidth,
			Height:          consts.ChartHeight,
			BackgroundColor: consts.ChartBackgroundColor,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      "Hotspots",
			TitleStyle: &opts.TextStyle{Color: consts.ChartTextColor},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:         "Sightings",
			NameLocation: "center",
			NameGap:      30,
			AxisLabel: &opts.AxisLabel{
				Color: consts.ChartTextColor,
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:         "Country",
			NameLocation: "center",
			NameGap:      100,
			AxisLabel: &opts.AxisLabel{
				Color: consts.ChartTextColor,
			},
		}),
		charts.WithGridOpts(opts.Grid{
			Left:   "140",
			Bottom: "60",
		}),
	)

	bar.SetXAxis(labels).
		AddSeries("Sightings", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: consts.CountryBarColor})).
		XYReversal()

	return bar
}

// buildMapChart is the degraded renderer: markers on a flat world map.
func buildMapChart(sightings []sighting.Sighting) *charts.Geo {
	data := make([]opts.GeoData, 0, len(sightings))
	for _, s := range sightings {
		if !plottable(s) {
			continue
		}
		data = append(data, opts.GeoData{
			Name:  s.Label(),
			Value: []float64{s.Lng, s.Lat, 1},
		})
	}

	m := charts.NewGeo()
	m.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           consts.PanelWidth,
			Height:          consts.PanelHeight,
			BackgroundColor: consts.ChartBackgroundColor,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      "Sightings Map",
			TitleStyle: &opts.TextStyle{Color: consts.ChartTextColor},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: "{b}",
		}),
		charts.WithGeoComponentOpts(opts.GeoComponent{
			Map: consts.MapName,
			ItemStyle: &opts.ItemStyle{
				Color:       consts.MapAreaColor,
				BorderColor: consts.MapBorderColor,
			},
		}),
	)
	m.AddSeries("Sightings", types.ChartScatter, data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: consts.MarkerColor}),
	)
	return m
}

// buildGlobeChart is the rich renderer: sightings placed on a sphere and
// coloured by shape.
func buildGlobeChart(sightings []sighting.Sighting, assetsHost string) *charts.Scatter3D {
	data := make([]opts.Chart3DData, 0, len(sightings))
	for _, s := range sightings {
		if !plottable(s) {
			continue
		}
		v := geo.Globe(s.Lat, s.Lng, consts.GlobeRadius)
		data = append(data, opts.Chart3DData{
			Name:      s.Label(),
			Value:     []interface{}{v.X, v.Y, v.Z},
			ItemStyle: &opts.ItemStyle{Color: sighting.ShapeColor(s.Shape)},
		})
	}

	axisLimit := consts.GlobeRadius * 1.1
	globe := charts.NewScatter3D()
	globe.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           consts.PanelWidth,
			Height:          consts.PanelHeight,
			BackgroundColor: consts.ChartBackgroundColor,
			AssetsHost:      assetsHost,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      "Global Sightings",
			TitleStyle: &opts.TextStyle{Color: consts.ChartTextColor},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Formatter: "{b}",
		}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Show: opts.Bool(false), Min: -axisLimit, Max: axisLimit}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Show: opts.Bool(false), Min: -axisLimit, Max: axisLimit}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Show: opts.Bool(false), Min: -axisLimit, Max: axisLimit}),
		charts.WithGrid3DOpts(opts.Grid3D{
			Show:        opts.Bool(false),
			ViewControl: &opts.ViewControl{AutoRotate: opts.Bool(true), AutoRotateSpeed: 5},
		}),
	)
	globe.AddSeries("Sightings", data)
	return globe
}

// GlobeOptions returns the rich renderer's chart options.
func GlobeOptions(sightings []sighting.Sighting, assetsHost string) map[string]interface{} {
	return options(buildGlobeChart(sightings, assetsHost))
}

// MapOptions returns the degraded renderer's chart options. It fails when
// no sighting can be placed on the map, and never panics.
func MapOptions(sightings []sighting.Sighting) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("building map chart: %v", r)
		}
	}()
	n := 0
	for _, s := range sightings {
		if plottable(s) {
			n++
		}
	}
	if n == 0 {
		return nil, ErrNothingToPlot
	}
	return options(buildMapChart(sightings)), nil
}

// SummaryOptions returns the sidebar charts keyed by id.
func SummaryOptions(s summary.Summary) map[string]interface{} {
	return map[string]interface{}{
		"shapes":    options(buildShapesChart(s)),
		"countries": options(buildCountriesChart(s)),
	}
}

func ChartsHandler(src source.Source, limit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := source.Load(r.Context(), src, limit, nil)
		if res.Failed {
			log.Print("Error loading sightings for charts")
			http.Error(w, "Failed to load data", http.StatusInternalServerError)
			return
		}
		if len(res.Sightings) == 0 {
			http.Error(w, "No data available", http.StatusNotFound)
			return
		}
		s := summary.SummarizeData(res.Sightings, summary.WithTop(rank.Unbounded))

		page := components.NewPage()
		page.PageTitle = "UFO Tracker"
		page.AddCharts(
			buildTimelineChart(res.Sightings),
			buildShapesChart(s),
			buildCountriesChart(s),
			buildMapChart(res.Sightings),
			buildGlobeChart(res.Sightings, consts.DefaultAssetsHost),
		)

		w.Header().Set("Content-Type", "text/html")
		_ = page.Render(w)
	}
}

// ExportChartsJSON generates a JSON file with all chart configurations
func ExportChartsJSON(ctx context.Context, src source.Source, limit int, outputDir string) error {
	sightings, err := src.FetchRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("fetching sightings: %w", err)
	}
	if len(sightings) == 0 {
		log.Print("No data to export")
		return nil
	}
	s := summary.SummarizeData(sightings, summary.DefaultOptions())

	// Combine all charts into a single JSON array to preserve order
	chartsData := []map[string]interface{}{
		{"id": "timeline", "options": options(buildTimelineChart(sightings))},
		{"id": "shapes", "options": options(buildShapesChart(s))},
		{"id": "countries", "options": options(buildCountriesChart(s))},
		{"id": "map", "options": options(buildMapChart(sightings))},
		{"id": "globe", "options": options(buildGlobeChart(sightings, consts.DefaultAssetsHost))},
	}

	output := map[string]interface{}{
		"totalSightings":    s.Total,
		"distinctCountries": s.DistinctCountries,
		"lastUpdated":       time.Now().UTC().Format(time.RFC3339),
		"charts":            chartsData,
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, consts.DirPermissions); err != nil {
		return err
	}

	outputPath := filepath.Join(outputDir, consts.ChartsJSONFile)
	if err := os.WriteFile(outputPath, jsonData, consts.FilePermissions); err != nil {
		return err
	}

	log.Printf("Exported charts to %s", outputPath)
	return nil
}
