package consts

import "time"

// Server configuration
const (
	DefaultPort       = "8080"
	ReadHeaderTimeout = 3 * time.Second
	ShutdownTimeout   = 10 * time.Second
	RateLimitRequests = 120
	RateLimitWindow   = time.Minute
)

// Cron schedules
const (
	CronGenerateChart = "5 * * * *"    // Hourly at :05
	CronAssetProbe    = "*/15 * * * *" // Every 15 minutes
)

// Data source
const (
	DefaultFetchLimit = 50
	MaxFetchLimit     = 500
	SourceStatic      = "static"
	SourceSQLite      = "sqlite"
	DBFileName        = "sightings.db"
)

// Summary panels
const (
	TopShapesCount    = 5
	TopCountriesCount = 5
	TopCitiesCount    = 5
)

// File paths and directories
const (
	ChartDataDir   = "web/chartdata"
	ChartsJSONFile = "charts.json"
)

// File permissions
const (
	DirPermissions  = 0750
	FilePermissions = 0600
)

// Date formats
const (
	DateFormat      = "2006-01-02"
	DateTimeFormat  = "2006-01-02 15:04:05"
	ListDateFormat  = "Jan 2, 2006"
	ChartDateFormat = "Jan 02, 2006"
)

// Chart configuration
const (
	ChartWidth     = "1200px"
	ChartHeight    = "700px"
	PanelWidth     = "100%"
	PanelHeight    = "600px"
	PNGChartWidth  = 800
	PNGChartHeight = 400
	GlobeRadius    = 100.0
	MapName        = "world"
)

// Chart colors and styling
const (
	ChartBackgroundColor = "#0f0a1e"
	ChartTextColor       = "#ffffff"
	MarkerColor          = "#a855f7"
	UnknownShapeColor    = "#ffffff"
	ShapeBarColor        = "#a855f7"
	CountryBarColor      = "#22c55e"
	MapAreaColor         = "#1f2937"
	MapBorderColor       = "#4b5563"
	GapHighlightColor    = "rgba(168, 85, 247, 0.15)"
	GapLabelColor        = "#9ca3af"
)

// Rich renderer assets
const (
	DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
	GlobeAssetFile    = "echarts-gl.min.js"
	AssetProbeTimeout = 3 * time.Second
	AssetCacheTTL     = 20 * time.Minute
)

// View sessions
const (
	ViewWriteTimeout = 5 * time.Second
	ViewPongWait     = 60 * time.Second
	ViewPingPeriod   = 50 * time.Second
	ViewMaxMessage   = 4096
	ViewHelloTimeout = 10 * time.Second
	ViewSendBuffer   = 16
)
