package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ufotracker/tracker/config"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/observability"
	"github.com/ufotracker/tracker/rank"
	"github.com/ufotracker/tracker/sighting"
	"github.com/ufotracker/tracker/source"
	"github.com/ufotracker/tracker/summary"
	"github.com/ufotracker/tracker/view"
)

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Server Suite")
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Port:        "0",
		CorsOrigins: []string{"*"},
		RateLimit:   1000,
		RateWindow:  time.Minute,
	}
}

var _ = Describe("Router", func() {
	var (
		deps      Deps
		collector *observability.Collector
	)

	BeforeEach(func() {
		var err error
		collector, err = observability.NewCollector(prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())
		deps = Deps{
			Source:     source.NewStatic(source.Demo()),
			SourceKind: consts.SourceStatic,
			Metrics:    collector,
		}
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		NewRouter(testServerConfig(), deps).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	Describe("GET /", func() {
		It("renders the summary, the pane and the list", func() {
			w := get("/")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/html"))
			body := w.Body.String()
			Expect(body).To(ContainSubstring(`<h2 id="total">20</h2>`))
			Expect(body).To(ContainSubstring("Most Common Shapes"))
			Expect(body).To(ContainSubstring("Hotspots"))
			Expect(body).To(ContainSubstring("Scanning the skies"))
			Expect(body).To(ContainSubstring("Reykjavik"))
			Expect(body).To(ContainSubstring("/ws/view"))
			Expect(body).To(ContainSubstring(consts.DefaultAssetsHost + "echarts-gl.min.js"))
		})

		It("joins an assets host without a trailing slash", func() {
			deps.AssetsHost = "https://cdn.example/assets"
			body := get("/").Body.String()
			Expect(body).To(ContainSubstring(`src="https://cdn.example/assets/echarts.min.js"`))
			Expect(body).To(ContainSubstring(`src="https://cdn.example/assets/maps/world.js"`))
		})

		It("leaves a notice instead of a blank pane when the live view fails", func() {
			body := get("/").Body.String()
			Expect(body).To(ContainSubstring("ws.onclose = unavailable"))
			Expect(body).To(ContainSubstring("ws.onerror = unavailable"))
			Expect(body).To(ContainSubstring(`renderer: msg.renderer || ""`))
			Expect(body).To(ContainSubstring("The live view is unavailable"))
		})

		It("filters and sorts the list", func() {
			body := get("/?q=tri&sort=country").Body.String()
			Expect(body).To(MatchRegexp(`value="country"\s+selected`))
			list := body[strings.Index(body, `<ul class="sightings">`):]
			Expect(list).To(ContainSubstring("Sydney"))
			Expect(list).NotTo(ContainSubstring("Reykjavik"))
			Expect(strings.Index(list, "Sydney")).To(BeNumerically("<", strings.Index(list, "Chicago")))
		})

		It("says so when a filter matches nothing", func() {
			body := get("/?q=atlantis").Body.String()
			Expect(body).To(ContainSubstring("No sightings match"))
			Expect(body).To(ContainSubstring("atlantis"))
		})

		It("shows the empty state without sightings", func() {
			deps.Source = source.NewStatic(nil)
			body := get("/").Body.String()
			Expect(body).To(ContainSubstring("No sightings reported yet"))
			Expect(body).NotTo(ContainSubstring("Scanning the skies"))
			Expect(body).To(ContainSubstring("Nothing to rank yet"))
		})

		It("still renders when the source fails", func() {
			deps.Source = source.Failing{}
			w := get("/")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("could not be loaded"))
			Expect(testutil.ToFloat64(collector.SourceFailures.WithLabelValues(consts.SourceStatic))).To(Equal(1.0))
		})

		It("escapes report text", func() {
			deps.Source = source.NewStatic([]sighting.Sighting{{ID: "x", City: "<script>alert(1)</script>", Country: "USA", Shape: "Light"}})
			body := get("/").Body.String()
			Expect(body).NotTo(ContainSubstring("<script>alert(1)</script>"))
		})
	})

	Describe("GET /api/sightings", func() {
		It("returns sightings newest first", func() {
			w := get("/api/sightings?limit=3")
			Expect(w.Code).To(Equal(http.StatusOK))
			var got []sighting.Sighting
			Expect(json.Unmarshal(w.Body.Bytes(), &got)).To(Succeed())
			Expect(got).To(HaveLen(3))
			Expect(got[0].ID).To(Equal("1"))
			Expect(got[2].ID).To(Equal("3"))
		})

		It("returns every sighting for limit 0", func() {
			var got []sighting.Sighting
			Expect(json.Unmarshal(get("/api/sightings?limit=0").Body.Bytes(), &got)).To(Succeed())
			Expect(got).To(HaveLen(20))
		})

		It("rejects a bad limit", func() {
			Expect(get("/api/sightings?limit=-1").Code).To(Equal(http.StatusBadRequest))
			Expect(get("/api/sightings?limit=many").Code).To(Equal(http.StatusBadRequest))
		})

		It("returns an empty array for an empty source", func() {
			deps.Source = source.NewStatic(nil)
			Expect(get("/api/sightings").Body.String()).To(Equal("[]"))
		})

		It("reports an unavailable source", func() {
			deps.Source = source.Failing{Err: errors.New("offline")}
			w := get("/api/sightings")
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Body.String()).To(ContainSubstring("error"))
		})

		It("looks up one sighting", func() {
			var got sighting.Sighting
			w := get("/api/sightings/4")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(json.Unmarshal(w.Body.Bytes(), &got)).To(Succeed())
			Expect(got.City).To(Equal("London"))
			Expect(get("/api/sightings/404").Code).To(Equal(http.StatusNotFound))
		})

		It("sends CORS headers", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/sightings", nil)
			req.Header.Set("Origin", "https://example.org")
			NewRouter(testServerConfig(), deps).ServeHTTP(w, req)
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("rate limits by client", func() {
			cfg := testServerConfig()
			cfg.RateLimit = 2
			router := NewRouter(cfg, deps)
			codes := []int{}
			for range 3 {
				w := httptest.NewRecorder()
				router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sightings", nil))
				codes = append(codes, w.Code)
			}
			Expect(codes).To(Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}))
		})
	})

	Describe("GET /api/sightings.geojson", func() {
		It("returns a feature collection", func() {
			w := get("/api/sightings.geojson")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/geo+json"))
			var fc struct {
				Type     string            `json:"type"`
				Features []json.RawMessage `json:"features"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &fc)).To(Succeed())
			Expect(fc.Type).To(Equal("FeatureCollection"))
			Expect(fc.Features).To(HaveLen(20))
		})
	})

	Describe("GET /api/summary", func() {
		It("ranks with ties in order of first appearance", func() {
			var s summary.Summary
			Expect(json.Unmarshal(get("/api/summary").Body.Bytes(), &s)).To(Succeed())
			Expect(s.Total).To(Equal(20))
			Expect(s.TopShapes).To(HaveLen(consts.TopShapesCount))
			Expect(s.TopShapes[:4]).To(Equal([]rank.Entry{
				{Key: "Triangle", Count: 3},
				{Key: "Sphere", Count: 3},
				{Key: "Light", Count: 2},
				{Key: "Cigar", Count: 2},
			}))
			Expect(s.TopCountries[0]).To(Equal(rank.Entry{Key: "USA", Count: 11}))
		})

		It("honours top", func() {
			var s summary.Summary
			Expect(json.Unmarshal(get("/api/summary?top=1").Body.Bytes(), &s)).To(Succeed())
			Expect(s.TopCountries).To(HaveLen(1))

			Expect(json.Unmarshal(get("/api/summary?top=-3").Body.Bytes(), &s)).To(Succeed())
			Expect(s.TopShapes).To(BeEmpty())
			Expect(get("/api/summary?top=x").Code).To(Equal(http.StatusBadRequest))
		})

		It("flags a failed source instead of erroring", func() {
			deps.Source = source.Failing{}
			w := get("/api/summary")
			Expect(w.Code).To(Equal(http.StatusOK))
			var s summary.Summary
			Expect(json.Unmarshal(w.Body.Bytes(), &s)).To(Succeed())
			Expect(s.Failed).To(BeTrue())
			Expect(s.Total).To(BeZero())
		})
	})

	Describe("PNG charts", func() {
		It("draws a ranking per field", func() {
			for _, field := range []string{"shape", "country", "city"} {
				w := get("/api/summary/" + field + ".png")
				Expect(w.Code).To(Equal(http.StatusOK), field)
				Expect(w.Header().Get("Content-Type")).To(Equal("image/png"))
				Expect(w.Body.Bytes()[:4]).To(Equal(pngMagic))
			}
		})

		It("rejects an unknown field", func() {
			Expect(get("/api/summary/colour.png").Code).To(Equal(http.StatusNotFound))
		})

		It("returns 404 with nothing to draw", func() {
			deps.Source = source.NewStatic(nil)
			Expect(get("/api/summary/shape.png").Code).To(Equal(http.StatusNotFound))
			Expect(get("/api/map.png").Code).To(Equal(http.StatusNotFound))
		})

		It("draws the map", func() {
			w := get("/api/map.png")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.Bytes()[:4]).To(Equal(pngMagic))
		})
	})

	Describe("operational endpoints", func() {
		It("reports health", func() {
			w := get("/healthz")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("OK"))
		})

		It("exposes request metrics", func() {
			get("/healthz")
			body := get("/metrics").Body.String()
			Expect(body).To(ContainSubstring(`http_requests_total{code="200",method="GET",route="/healthz"} 1`))
		})

		It("routes the view socket when configured", func() {
			Expect(get("/ws/view").Code).To(Equal(http.StatusNotFound))

			deps.View = view.NewHandler(view.Config{Source: deps.Source})
			Expect(get("/ws/view").Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("serves over a real listener", func() {
		srv := New(testServerConfig(), deps)
		ts := httptest.NewServer(srv.Router())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/healthz")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("OK"))
	})
})
