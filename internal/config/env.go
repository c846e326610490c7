package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ExportConfig controls page geometry and output encoding.
type ExportConfig struct {
	PageWidth      float64
	PageHeight     float64
	PageUnit       string
	OutputDPI      float64
	Resampler      string // "bilinear"|"nearest"|"catmullrom"
	ImageFormat    string // "png"|"jpeg"
	JPEGQuality    int
	FilenameSuffix string
	Timeout        time.Duration
	LockTTL        time.Duration
}

// CaptureConfig controls the rasterizers.
type CaptureConfig struct {
	ChromeURL string
	NoSandbox bool
	Scale     float64
	Width     int
	Selector  string
	Timeout   time.Duration
	PDFDPI    float64
	PDFGray   bool
	// Concurrency caps simultaneous captures per content kind.
	Concurrency int
}

// ResultConfig controls where finished exports are kept.
type ResultConfig struct {
	Dir           string
	S3Bucket      string
	S3Prefix      string
	AWSRegion     string
	AWSAccessKey  string
	AWSSecretKey  string
	CleanupMaxAge time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging  LoggingConfig
	Axiom    AxiomConfig
	Export   ExportConfig
	Capture  CaptureConfig
	Results  ResultConfig
	RedisURL string
	Port     string
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// a missing .env is normal outside development
		_ = godotenv.Load(f)
	}
	return FromEnv()
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/cvexport.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_cvexport",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	// Export defaults: A4 portrait at source density
	cfg.Export = ExportConfig{
		PageWidth:      parseFloat(getEnv("PAGE_WIDTH", "210"), 210),
		PageHeight:     parseFloat(getEnv("PAGE_HEIGHT", "297"), 297),
		PageUnit:       getEnv("PAGE_UNIT", "mm"),
		OutputDPI:      parseFloat(getEnv("OUTPUT_DPI", "0"), 0),
		Resampler:      getEnv("RESAMPLER", "bilinear"),
		ImageFormat:    getEnv("PAGE_IMAGE_FORMAT", "png"),
		JPEGQuality:    parseInt(getEnv("JPEG_QUALITY", "90"), 90),
		FilenameSuffix: getEnv("FILENAME_SUFFIX", "_CV"),
		Timeout:        parseDuration(getEnv("EXPORT_TIMEOUT", "60s"), 60*time.Second),
		LockTTL:        parseDuration(getEnv("LOCK_TTL", "2m"), 2*time.Minute),
	}
	cfg.Export.Timeout, cfg.Export.LockTTL = exportBounds(cfg.Export.Timeout, cfg.Export.LockTTL)

	cfg.Capture = CaptureConfig{
		ChromeURL: getEnv("CHROME_URL", ""),
		NoSandbox: parseBool(getEnv("CHROME_NO_SANDBOX", "false")),
		Scale:     parseFloat(getEnv("CAPTURE_SCALE", "2"), 2),
		Width:     parseInt(getEnv("CAPTURE_WIDTH", "794"), 794),
		Selector:  getEnv("CAPTURE_SELECTOR", "body"),
		Timeout:   parseDuration(getEnv("CAPTURE_TIMEOUT", "30s"), 30*time.Second),
		PDFDPI:    parseFloat(getEnv("PDF_RENDER_DPI", "150"), 150),
		PDFGray:   parseBool(getEnv("PDF_RENDER_GRAY", "false")),

		Concurrency: parseInt(getEnv("CAPTURE_CONCURRENCY", "4"), 4),
	}

	cfg.Results = ResultConfig{
		Dir:           getEnv("RESULT_DIR", "uploads/results"),
		S3Bucket:      getEnv("AWS_S3_BUCKET", ""),
		S3Prefix:      getEnv("AWS_S3_PREFIX", "exports"),
		AWSRegion:     getEnv("AWS_REGION", ""),
		AWSAccessKey:  getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CleanupMaxAge: parseDuration(getEnv("TEMP_MAX_AGE", "1h"), time.Hour),
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.Port = getEnv("PORT", "8080")

	return cfg
}

// lockMargin is how long a document lock outlives the export deadline.
const lockMargin = 30 * time.Second

// exportBounds keeps every export bounded and its document lock alive for
// the whole run. The lock TTL is never refreshed, so it must cover the timeout.
func exportBounds(timeout, lockTTL time.Duration) (time.Duration, time.Duration) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if lockTTL < timeout+lockMargin {
		lockTTL = timeout + lockMargin
	}
	return timeout, lockTTL
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
