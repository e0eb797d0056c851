package charts

import (
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/sighting"
)

// timeSeriesData holds a continuous day range with the number of sightings
// reported on each day. Days without reports are absent from Counts.
type timeSeriesData struct {
	Dates  []string          // Continuous date range as formatted strings
	Counts map[time.Time]int // Map from UTC day to sightings reported that day
	Start  time.Time         // First day in the range
}

// gapRange represents a run of days without reports
type gapRange struct {
	StartDate string
	EndDate   string
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// buildTimeSeriesData buckets sightings per UTC day and spans the range from
// the oldest to the newest report.
func buildTimeSeriesData(sightings []sighting.Sighting) timeSeriesData {
	if len(sightings) == 0 {
		return timeSeriesData{}
	}

	counts := make(map[time.Time]int)
	start, end := day(sightings[0].Time.Time), day(sightings[0].Time.Time)
	for _, s := range sightings {
		d := day(s.Time.Time)
		counts[d]++
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(consts.ChartDateFormat))
	}

	return timeSeriesData{Dates: dates, Counts: counts, Start: start}
}

// findGaps returns the runs of days without any report
func (ts timeSeriesData) findGaps() []gapRange {
	if len(ts.Dates) == 0 {
		return nil
	}

	var gaps []gapRange
	var gapStart time.Time
	inGap := false

	for i := range ts.Dates {
		date := ts.Start.AddDate(0, 0, i)
		hasData := ts.Counts[date] > 0

		if !hasData && !inGap {
			gapStart = date
			inGap = true
		} else if hasData && inGap {
			gapEnd := date.AddDate(0, 0, -1)
			gaps = append(gaps, gapRange{
				StartDate: gapStart.Format(consts.ChartDateFormat),
				EndDate:   gapEnd.Format(consts.ChartDateFormat),
			})
			inGap = false
		}
	}

	// The last day always has a report, so a trailing gap cannot happen.
	return gaps
}

// buildMarkAreaData creates MarkArea data pairs for highlighting quiet days
func buildMarkAreaData(gaps []gapRange) [][]opts.MarkAreaData {
	if len(gaps) == 0 {
		return nil
	}

	var areas [][]opts.MarkAreaData
	for _, gap := range gaps {
		areas = append(areas, []opts.MarkAreaData{
			{
				Name:  "No Reports",
				XAxis: gap.StartDate,
				MarkAreaStyle: opts.MarkAreaStyle{
					ItemStyle: &opts.ItemStyle{
						Color: consts.GapHighlightColor,
					},
					Label: &opts.Label{
						Show:     opts.Bool(true),
						Position: "inside",
						Color:    consts.GapLabelColor,
					},
				},
			},
			{
				XAxis: gap.EndDate,
			},
		})
	}
	return areas
}

func buildTimelineChart(sightings []sighting.Sighting) *charts.Line {
	ts := buildTimeSeriesData(sightings)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           consts.ChartWidth,
			Height:          consts.ChartHeight,
			BackgroundColor: consts.ChartBackgroundColor,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      "Sightings per Day",
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
			Name:         "Date",
			NameLocation: "center",
			NameGap:      30,
			AxisLabel: &opts.AxisLabel{
				Color: consts.ChartTextColor,
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:         "Sightings",
			NameLocation: "center",
			NameGap:      50,
			AxisLabel: &opts.AxisLabel{
				Color: consts.ChartTextColor,
			},
		}),
		charts.WithGridOpts(opts.Grid{
			Left:   "80",
			Right:  "40",
			Bottom: "60",
		}),
	)

	line.SetXAxis(ts.Dates)

	data := make([]opts.LineData, len(ts.Dates))
	for i := range ts.Dates {
		data[i] = opts.LineData{Value: ts.Counts[ts.Start.AddDate(0, 0, i)]}
	}

	markAreas := buildMarkAreaData(ts.findGaps())
	line.AddSeries("Sightings", data, charts.WithMarkAreaData(markAreas...))
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: consts.MarkerColor}),
	)

	return line
}
