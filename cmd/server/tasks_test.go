package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/logging"
	"github.com/ufotracker/tracker/observability"
	"github.com/ufotracker/tracker/source"
	"github.com/ufotracker/tracker/view"
)

func TestServerTasks(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Server Tasks Suite")
}

var _ = Describe("tasks", func() {
	var (
		out bytes.Buffer
		t   *tasks
	)

	BeforeEach(func() {
		out.Reset()
		collector, err := observability.NewCollector(prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())
		t = &tasks{
			source:    source.NewStatic(source.Demo()),
			limit:     consts.DefaultFetchLimit,
			outputDir: GinkgoT().TempDir(),
			metrics:   collector,
			log:       logging.New(logging.Config{Level: "debug", Format: "json"}, &out),
		}
	})

	It("exports the charts and logs through the structured logger", func() {
		t.generateCharts(context.Background())()

		Expect(filepath.Join(t.outputDir, consts.ChartsJSONFile)).To(BeAnExistingFile())
		Expect(out.String()).To(ContainSubstring(`"msg":"exporting charts JSON"`))
		Expect(testutil.ToFloat64(t.metrics.ChartExports.WithLabelValues("ok"))).To(Equal(1.0))
	})

	It("logs and counts a failed export", func() {
		t.source = source.Failing{Err: errors.New("offline")}
		t.generateCharts(context.Background())()

		Expect(out.String()).To(ContainSubstring(`"level":"ERROR"`))
		Expect(out.String()).To(ContainSubstring("offline"))
		Expect(testutil.ToFloat64(t.metrics.ChartExports.WithLabelValues("error"))).To(Equal(1.0))
	})

	It("warns when the 3D assets are unreachable", func() {
		assets := httptest.NewServer(http.NotFoundHandler())
		DeferCleanup(assets.Close)
		t.assets = view.NewAssetChecker(assets.URL, time.Second)

		t.probeAssets(context.Background())()
		Expect(out.String()).To(ContainSubstring(`"level":"WARN"`))
		Expect(out.String()).To(ContainSubstring("new views will degrade"))
	})
})
