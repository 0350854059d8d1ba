package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Parse    ParseConfig
	Imaging  ImagingConfig
	Cache    CacheConfig
	Queue    QueueConfig
	Log      LogConfig
	Watch    WatchConfig
}

// DatabaseConfig holds database-related configuration. Driver is "postgres"
// (DSN is a postgres URL) or "sqlite" (DSN is a file path or ":memory:").
type DatabaseConfig struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine           string // "cli" or "gosseract"
	TesseractBin     string
	TessdataDir      string
	Language         string
	PSM              int
	HeicConverter    string
	ArtifactCacheDir string
	ReviewConfidence float64
	Timeout          time.Duration
}

// ParseConfig feeds transcript.Config
type ParseConfig struct {
	ConfidenceThreshold float64
	MatchThreshold      float64
	Language            string
	CurriculumFile      string
}

// ImagingConfig toggles preprocessing steps
type ImagingConfig struct {
	Enabled      bool
	Deskew       bool
	RemoveStamps bool
	Sharpen      bool
	RequireTable bool
}

// CacheConfig holds the Redis parse-result cache settings. An empty address
// disables caching.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// QueueConfig sizes the async processing queue
type QueueConfig struct {
	Workers    int
	Size       int
	JobTimeout time.Duration
}

// LogConfig selects the slog handler ("json" or "text") and level
type LogConfig struct {
	Format string
	Level  string
}

// WatchConfig enables the directory watcher in the server. An empty Dir
// disables it.
type WatchConfig struct {
	Dir         string
	InitialScan bool
	Debounce    time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Engine:           strings.ToLower(getEnv("OCR_ENGINE", "cli")),
			TesseractBin:     getEnv("TESSERACT_BIN", "tesseract"),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			Language:         getEnv("OCR_LANG", "vie+eng"),
			PSM:              getEnvAsInt("OCR_PSM", 6),
			HeicConverter:    getEnv("HEIC_CONVERTER", "magick"),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
			ReviewConfidence: getEnvAsFloat64("OCR_REVIEW_CONFIDENCE", 0.6),
			Timeout:          getEnvAsDuration("OCR_TIMEOUT", 2*time.Minute),
		},
		Parse: ParseConfig{
			ConfidenceThreshold: getEnvAsFloat64("PARSE_CONFIDENCE_THRESHOLD", 0.5),
			MatchThreshold:      getEnvAsFloat64("PARSE_MATCH_THRESHOLD", 0.65),
			Language:            getEnv("PARSE_LANGUAGE", ""),
			CurriculumFile:      getEnv("CURRICULUM_FILE", ""),
		},
		Imaging: ImagingConfig{
			Enabled:      getEnvAsBool("IMAGING_ENABLED", true),
			Deskew:       getEnvAsBool("IMAGING_DESKEW", true),
			RemoveStamps: getEnvAsBool("IMAGING_REMOVE_STAMPS", true),
			Sharpen:      getEnvAsBool("IMAGING_SHARPEN", true),
			RequireTable: getEnvAsBool("IMAGING_REQUIRE_TABLE", true),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			TTL:           getEnvAsDuration("CACHE_TTL", 24*time.Hour),
		},
		Queue: QueueConfig{
			Workers:    getEnvAsInt("QUEUE_WORKERS", 2),
			Size:       getEnvAsInt("QUEUE_SIZE", 32),
			JobTimeout: getEnvAsDuration("QUEUE_JOB_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
			Level:  getEnv("LOG_LEVEL", "info"),
		},
		Watch: WatchConfig{
			Dir:         getEnv("WATCH_DIR", ""),
			InitialScan: getEnvAsBool("WATCH_INITIAL_SCAN", false),
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("DB_DRIVER", c.Database.Driver, OneOf("postgres", "sqlite"))
	v.Field("DB_URL", c.Database.DSN, Required)
	v.Field("GRPC_ADDR", c.Server.GRPCAddr, Required)
	v.Field("OCR_ENGINE", c.OCR.Engine, OneOf("cli", "gosseract"))
	v.Field("OCR_REVIEW_CONFIDENCE", c.OCR.ReviewConfidence, InRange(0, 1))
	v.Field("PARSE_CONFIDENCE_THRESHOLD", c.Parse.ConfidenceThreshold, InRange(0, 1))
	v.Field("PARSE_MATCH_THRESHOLD", c.Parse.MatchThreshold, InRange(0, 1))
	v.Field("PARSE_LANGUAGE", c.Parse.Language, OneOf("", "vi", "en"))
	v.Field("QUEUE_WORKERS", c.Queue.Workers, InRange(1, 256))
	v.Field("LOG_FORMAT", c.Log.Format, OneOf("json", "text"))
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
