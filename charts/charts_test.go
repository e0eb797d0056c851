package charts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/rank"
	"github.com/ufotracker/tracker/sighting"
	"github.com/ufotracker/tracker/source"
	"github.com/ufotracker/tracker/summary"
)

func TestCharts(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Charts Suite")
}

func reportOn(day, hour int) sighting.Sighting {
	return sighting.Sighting{
		ID:      time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC).Format(time.RFC3339),
		Time:    sighting.NewTimestamp(time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC)),
		City:    "Phoenix",
		State:   "AZ",
		Country: "USA",
		Shape:   "Light",
		Lat:     33.4484,
		Lng:     -112.074,
	}
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

var _ = Describe("Charts", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "charts-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("buildTimeSeriesData", func() {
		It("returns empty data for no sightings", func() {
			ts := buildTimeSeriesData([]sighting.Sighting{})
			Expect(ts.Dates).To(BeEmpty())
			Expect(ts.Counts).To(BeEmpty())
		})

		It("creates continuous date range without gaps", func() {
			ts := buildTimeSeriesData([]sighting.Sighting{reportOn(3, 1), reportOn(1, 5), reportOn(2, 9), reportOn(2, 23)})
			Expect(ts.Dates).To(Equal([]string{"Jan 01, 2025", "Jan 02, 2025", "Jan 03, 2025"}))
			Expect(ts.Counts[time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)]).To(Equal(2))
		})

		It("leaves days without reports out of the counts", func() {
			ts := buildTimeSeriesData([]sighting.Sighting{reportOn(1, 0), reportOn(5, 0)})
			Expect(ts.Dates).To(HaveLen(5))
			Expect(ts.Start).To(Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
			Expect(ts.Counts).NotTo(HaveKey(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)))
		})
	})

	Describe("findGaps", func() {
		It("returns empty for empty time series", func() {
			Expect(buildTimeSeriesData(nil).findGaps()).To(BeEmpty())
		})

		It("returns empty when every day has a report", func() {
			ts := buildTimeSeriesData([]sighting.Sighting{reportOn(1, 0), reportOn(2, 0), reportOn(3, 0)})
			Expect(ts.findGaps()).To(BeEmpty())
		})

		It("finds a single gap", func() {
			gaps := buildTimeSeriesData([]sighting.Sighting{reportOn(1, 0), reportOn(5, 0)}).findGaps()
			Expect(gaps).To(HaveLen(1))
			Expect(gaps[0].StartDate).To(Equal("Jan 02, 2025"))
			Expect(gaps[0].EndDate).To(Equal("Jan 04, 2025"))
		})

		It("finds multiple gaps", func() {
			gaps := buildTimeSeriesData([]sighting.Sighting{reportOn(1, 0), reportOn(3, 0), reportOn(6, 0)}).findGaps()
			Expect(gaps).To(Equal([]gapRange{
				{StartDate: "Jan 02, 2025", EndDate: "Jan 02, 2025"},
				{StartDate: "Jan 04, 2025", EndDate: "Jan 05, 2025"},
			}))
			Expect(buildMarkAreaData(gaps)).To(HaveLen(2))
		})
	})

	Describe("ChartsHandler", func() {
		It("returns 404 when no data available", func() {
			handler := ChartsHandler(source.NewStatic(nil), 0)
			req := httptest.NewRequest(http.MethodGet, "/charts", nil)
			w := httptest.NewRecorder()

			handler(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(w.Body.String()).To(ContainSubstring("No data available"))
		})

		It("returns 500 when the source fails", func() {
			w := httptest.NewRecorder()
			ChartsHandler(source.Failing{}, 0)(w, httptest.NewRequest(http.MethodGet, "/charts", nil))
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})

		It("returns HTML with charts when data exists", func() {
			handler := ChartsHandler(source.NewStatic(source.Demo()), 0)
			w := httptest.NewRecorder()

			handler(w, httptest.NewRequest(http.MethodGet, "/charts", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("text/html"))
			body := w.Body.String()
			Expect(body).To(ContainSubstring("UFO Tracker"))
			Expect(body).To(ContainSubstring("Sightings per Day"))
			Expect(body).To(ContainSubstring("Most Common Shapes"))
			Expect(body).To(ContainSubstring("Hotspots"))
			Expect(body).To(ContainSubstring("echarts"))
		})
	})

	Describe("ExportChartsJSON", func() {
		It("writes every chart in order", func() {
			err := ExportChartsJSON(context.Background(), source.NewStatic(source.Demo()), 0, tempDir)
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(filepath.Join(tempDir, consts.ChartsJSONFile))
			Expect(err).NotTo(HaveOccurred())
			var out struct {
				TotalSightings int `json:"totalSightings"`
				Charts         []struct {
					ID string `json:"id"`
				} `json:"charts"`
			}
			Expect(json.Unmarshal(data, &out)).To(Succeed())
			Expect(out.TotalSightings).To(Equal(20))
			ids := []string{}
			for _, c := range out.Charts {
				ids = append(ids, c.ID)
			}
			Expect(ids).To(Equal([]string{"timeline", "shapes", "countries", "map", "globe"}))
		})

		It("writes nothing for an empty source", func() {
			Expect(ExportChartsJSON(context.Background(), source.NewStatic(nil), 0, tempDir)).To(Succeed())
			_, err := os.Stat(filepath.Join(tempDir, consts.ChartsJSONFile))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("reports a failing source", func() {
			offline := errors.New("offline")
			err := ExportChartsJSON(context.Background(), source.Failing{Err: offline}, 0, tempDir)
			Expect(err).To(MatchError(offline))
		})
	})

	Describe("option builders", func() {
		It("colours the shape pie by shape", func() {
			s := summary.Summarize([]sighting.Sighting{reportOn(1, 0), reportOn(2, 0)}, 5)
			pie := buildShapesChart(s)
			data, err := json.Marshal(options(pie))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(sighting.ShapeColor("Light")))
			Expect(string(data)).To(ContainSubstring("Most Common Shapes"))
		})

		It("builds summary options for both sidebar charts", func() {
			opts := SummaryOptions(summary.Summarize(source.Demo(), 5))
			Expect(opts).To(HaveKey("shapes"))
			Expect(opts).To(HaveKey("countries"))
		})

		It("builds the globe from every sighting", func() {
			data, err := json.Marshal(GlobeOptions(source.Demo(), consts.DefaultAssetsHost))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("scatter3D"))
			Expect(string(data)).To(ContainSubstring("Phoenix, USA"))
		})

		It("refuses a map with nothing to plot", func() {
			_, err := MapOptions([]sighting.Sighting{{Lat: math.NaN(), Lng: 0}})
			Expect(err).To(MatchError(ErrNothingToPlot))
			_, err = MapOptions(nil)
			Expect(err).To(MatchError(ErrNothingToPlot))
		})

		It("builds the map for plottable sightings", func() {
			opts, err := MapOptions(source.Demo())
			Expect(err).NotTo(HaveOccurred())
			data, _ := json.Marshal(opts)
			Expect(string(data)).To(ContainSubstring(consts.MapName))
		})
	})

	Describe("PNG rendering", func() {
		It("draws a ranking", func() {
			var buf bytes.Buffer
			err := RenderRankingPNG(&buf, "Shapes", []rank.Entry{{Key: "Light", Count: 3}, {Key: "", Count: 1}}, consts.ShapeBarColor)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.Bytes()[:4]).To(Equal(pngMagic))
		})

		It("draws a single bar", func() {
			var buf bytes.Buffer
			Expect(RenderRankingPNG(&buf, "Countries", []rank.Entry{{Key: "USA", Count: 2}}, consts.CountryBarColor)).To(Succeed())
		})

		It("refuses an empty ranking", func() {
			Expect(RenderRankingPNG(&bytes.Buffer{}, "Shapes", nil, consts.ShapeBarColor)).To(MatchError(ErrNoEntries))
		})

		It("draws the sightings map", func() {
			var buf bytes.Buffer
			Expect(RenderMapPNG(&buf, source.Demo())).To(Succeed())
			Expect(buf.Bytes()[:4]).To(Equal(pngMagic))
			Expect(RenderMapPNG(&bytes.Buffer{}, nil)).To(MatchError(ErrNothingToPlot))
		})
	})

	Describe("SightingsFeatureCollection", func() {
		It("emits a point per plottable sighting", func() {
			sightings := append(source.Demo(), sighting.Sighting{ID: "bad", Lat: math.Inf(1)})
			fc := SightingsFeatureCollection(sightings)
			Expect(fc.Features).To(HaveLen(20))
			Expect(fc.Features[0].Geometry.Point).To(Equal([]float64{-112.074, 33.4484}))
			Expect(fc.Features[0].Properties["shape"]).To(Equal("Light"))

			data, err := json.Marshal(fc)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"FeatureCollection"`))
		})

		It("is an empty collection for no sightings", func() {
			data, err := json.Marshal(SightingsFeatureCollection(nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"features":[]`))
		})
	})
})
