package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr   string
	APIKey       string
	CORSOrigin   string
	TrustProxy   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string

	UploadDir      string
	UploadURLBase  string
	MaxUploadBytes int64
	StorageBackend string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	RateLimitMax    int
	RateLimitWindow time.Duration
	GlobalRateLimit float64

	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string
	PostgresSSLMode  string
}

// Load reads configuration from TRAVELOG_* environment variables with
// sensible defaults. The API key has no default: writes are impossible
// without one.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("travelog")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":1337")
	v.SetDefault("cors_origin", "http://localhost:5173")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("read_timeout", 30*time.Second)
	v.SetDefault("write_timeout", 30*time.Second)
	v.SetDefault("log_level", "info")

	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("upload_url_base", "/uploads/")
	v.SetDefault("max_upload_bytes", int64(5*1024*1024))
	v.SetDefault("storage_backend", "local")

	v.SetDefault("s3_bucket", "travelog-uploads")
	v.SetDefault("s3_region", "us-east-1")

	v.SetDefault("rate_limit_max", 1)
	v.SetDefault("rate_limit_window", 10*time.Second)
	v.SetDefault("global_rate_limit", 50.0)

	v.SetDefault("postgres_user", "travelog")
	v.SetDefault("postgres_password", "password")
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_database", "travelog")
	v.SetDefault("postgres_ssl_mode", "disable")

	cfg := &Config{
		ListenAddr:   v.GetString("listen_addr"),
		APIKey:       v.GetString("api_key"),
		CORSOrigin:   v.GetString("cors_origin"),
		TrustProxy:   v.GetBool("trust_proxy"),
		ReadTimeout:  v.GetDuration("read_timeout"),
		WriteTimeout: v.GetDuration("write_timeout"),
		LogLevel:     v.GetString("log_level"),

		UploadDir:      v.GetString("upload_dir"),
		UploadURLBase:  v.GetString("upload_url_base"),
		MaxUploadBytes: v.GetInt64("max_upload_bytes"),
		StorageBackend: v.GetString("storage_backend"),

		S3Bucket:    v.GetString("s3_bucket"),
		S3Region:    v.GetString("s3_region"),
		S3Endpoint:  v.GetString("s3_endpoint"),
		S3AccessKey: v.GetString("s3_access_key"),
		S3SecretKey: v.GetString("s3_secret_key"),

		RateLimitMax:    v.GetInt("rate_limit_max"),
		RateLimitWindow: v.GetDuration("rate_limit_window"),
		GlobalRateLimit: v.GetFloat64("global_rate_limit"),

		PostgresUser:     v.GetString("postgres_user"),
		PostgresPassword: v.GetString("postgres_password"),
		PostgresHost:     v.GetString("postgres_host"),
		PostgresPort:     v.GetString("postgres_port"),
		PostgresDatabase: v.GetString("postgres_database"),
		PostgresSSLMode:  v.GetString("postgres_ssl_mode"),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("TRAVELOG_API_KEY must be set")
	}
	if cfg.StorageBackend != "local" && cfg.StorageBackend != "s3" {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "s3" && (cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		return nil, fmt.Errorf("s3 storage requires TRAVELOG_S3_ACCESS_KEY and TRAVELOG_S3_SECRET_KEY")
	}

	return cfg, nil
}
