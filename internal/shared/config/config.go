package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	JWTTTL          time.Duration
	CORSAllowOrigin []string
	MaxUploadBytes  int64
	ObjectStoreType string
	LocalStoreDir   string
	PublicBaseURL   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool
	CacheControl    string

	AnalysisProvider   string
	AnalysisBaseURL    string
	AnalysisAPIKey     string
	AnalysisFunction   string
	AnalysisTimeout    time.Duration
	AnalysisQueueURL   string
	BackgroundAnalysis []string

	RateLimitRPS         float64
	RateLimitBurst       int
	UploadRateLimitRPS   float64
	UploadRateLimitBurst int
}

var defaults = map[string]any{
	"ENV":                       "dev",
	"PORT":                      "8080",
	"JWT_TTL":                   24 * time.Hour,
	"CORS_ALLOW_ORIGIN":         "http://localhost:5173",
	"MAX_UPLOAD_BYTES":          int64(50 << 20),
	"OBJECT_STORE":              "local",
	"LOCAL_STORE_DIR":           "./data",
	"PUBLIC_BASE_URL":           "http://localhost:8080/files",
	"MINIO_USE_SSL":             false,
	"STORAGE_CACHE_CONTROL":     "3600",
	"ANALYSIS_PROVIDER":         "local",
	"ANALYSIS_FUNCTION":         "document-analysis",
	"ANALYSIS_TIMEOUT":          2 * time.Minute,
	"RATE_LIMIT_RPS":            10.0,
	"RATE_LIMIT_BURST":          int64(40),
	"UPLOAD_RATE_LIMIT_RPS":     0.5,
	"UPLOAD_RATE_LIMIT_BURST":   int64(10),
	"DATABASE_URL":              "",
	"REDIS_URL":                 "",
	"JWT_SECRET":                "",
	"AWS_REGION":                "",
	"S3_BUCKET":                 "",
	"S3_PREFIX":                 "",
	"MINIO_ENDPOINT":            "",
	"MINIO_ACCESS_KEY":          "",
	"MINIO_SECRET_KEY":          "",
	"ANALYSIS_BASE_URL":         "",
	"ANALYSIS_API_KEY":          "",
	"ANALYSIS_SQS_QUEUE_URL":    "",
	"ANALYSIS_BACKGROUND_KINDS": "",
}

// Load reads configuration from the environment and an optional .env file in
// the working directory. Environment variables win over the file.
func Load() Config {
	return load(newViper(".env"))
}

func newViper(envFile string) *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		// Missing file is fine outside local development.
		_ = v.ReadInConfig()
	}
	return v
}

func load(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := v.GetString("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:               v.GetString("PORT"),
		Env:                env,
		DatabaseURL:        dbURL,
		RedisURL:           v.GetString("REDIS_URL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTTTL:             positiveDuration(v, "JWT_TTL"),
		CORSAllowOrigin:    splitAndTrim(v.GetString("CORS_ALLOW_ORIGIN")),
		MaxUploadBytes:     positiveInt64(v, "MAX_UPLOAD_BYTES"),
		ObjectStoreType:    normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:      v.GetString("LOCAL_STORE_DIR"),
		PublicBaseURL:      v.GetString("PUBLIC_BASE_URL"),
		AWSRegion:          v.GetString("AWS_REGION"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Prefix:           v.GetString("S3_PREFIX"),
		MinioEndpoint:      v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:     v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:     v.GetString("MINIO_SECRET_KEY"),
		MinioUseSSL:        v.GetBool("MINIO_USE_SSL"),
		CacheControl:       v.GetString("STORAGE_CACHE_CONTROL"),
		AnalysisProvider:   normalizeAnalysisProvider(v.GetString("ANALYSIS_PROVIDER")),
		AnalysisBaseURL:    v.GetString("ANALYSIS_BASE_URL"),
		AnalysisAPIKey:     v.GetString("ANALYSIS_API_KEY"),
		AnalysisFunction:   v.GetString("ANALYSIS_FUNCTION"),
		AnalysisTimeout:    positiveDuration(v, "ANALYSIS_TIMEOUT"),
		AnalysisQueueURL:   v.GetString("ANALYSIS_SQS_QUEUE_URL"),
		BackgroundAnalysis: splitAndTrim(v.GetString("ANALYSIS_BACKGROUND_KINDS")),

		RateLimitRPS:         positiveFloat(v, "RATE_LIMIT_RPS"),
		RateLimitBurst:       int(positiveInt64(v, "RATE_LIMIT_BURST")),
		UploadRateLimitRPS:   positiveFloat(v, "UPLOAD_RATE_LIMIT_RPS"),
		UploadRateLimitBurst: int(positiveInt64(v, "UPLOAD_RATE_LIMIT_BURST")),
	}
}

// positiveInt64 falls back to the default when the value is malformed or not
// positive.
func positiveInt64(v *viper.Viper, key string) int64 {
	def := cast.ToInt64(defaults[key])
	val, err := cast.ToInt64E(strings.TrimSpace(v.GetString(key)))
	if err != nil || val <= 0 {
		log.Printf("config %s invalid int: %q", key, v.GetString(key))
		return def
	}
	return val
}

func positiveFloat(v *viper.Viper, key string) float64 {
	def := cast.ToFloat64(defaults[key])
	val, err := cast.ToFloat64E(strings.TrimSpace(v.GetString(key)))
	if err != nil || val <= 0 {
		log.Printf("config %s invalid float: %q", key, v.GetString(key))
		return def
	}
	return val
}

func positiveDuration(v *viper.Viper, key string) time.Duration {
	def := cast.ToDuration(defaults[key])
	val, err := cast.ToDurationE(v.Get(key))
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration: %q", key, v.GetString(key))
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeAnalysisProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "http", "remote":
		return "http"
	default:
		return "local"
	}
}
