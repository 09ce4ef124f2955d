package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketUploads string
	BucketLogs    string
	UseSSL        bool
	Region        string
	PresignTTL    time.Duration
}

// InferenceConfig drives the gateway-side client for the inference service.
type InferenceConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	RetryJitter   bool
}

// DetectorConfig points inferd at the external model-runner endpoints.
type DetectorConfig struct {
	GeneralURL    string
	DresscodeURL  string
	DustbinURL    string
	LightsURL     string
	ConfThreshold float64
	Timeout       time.Duration
}

type LogSinkConfig struct {
	Store         string
	Root          string
	RetentionDays int
}

// PolicyConfig resolves behaviors the dress-code rule leaves open:
// how an undetected slot is reported and which detection wins a slot.
type PolicyConfig struct {
	SlotPick       string
	ViolationStyle string
}

type SecurityConfig struct {
	APIKey string
}

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Inference        InferenceConfig
	Detector         DetectorConfig
	LogSink          LogSinkConfig
	Policy           PolicyConfig
	Security         SecurityConfig
	Worker           WorkerConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("SITEINSPECT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketuploads", "siteinspect-uploads")
	v.SetDefault("storage.bucketlogs", "siteinspect-logs")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.presignttl", "1h")

	v.SetDefault("inference.baseurl", "http://127.0.0.1:8090")
	v.SetDefault("inference.timeout", "30s")
	v.SetDefault("inference.retryattempts", 3)
	v.SetDefault("inference.retrydelay", "2s")
	v.SetDefault("inference.retryjitter", false)

	v.SetDefault("detector.generalurl", "http://127.0.0.1:9000/detect")
	v.SetDefault("detector.dresscodeurl", "http://127.0.0.1:9000/detect/fashion")
	v.SetDefault("detector.dustbinurl", "http://127.0.0.1:9000/detect/dustbin")
	v.SetDefault("detector.lightsurl", "http://127.0.0.1:9000/detect/lights")
	v.SetDefault("detector.confthreshold", 0.25)
	v.SetDefault("detector.timeout", "20s")

	v.SetDefault("logsink.store", "siteinspect")
	v.SetDefault("logsink.root", "logs")
	v.SetDefault("logsink.retentiondays", 30)

	v.SetDefault("policy.slotpick", "last")
	v.SetDefault("policy.violationstyle", "folded")

	v.SetDefault("worker.stream", "inspect:tasks")
	v.SetDefault("worker.group", "inspect-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "10s")
}
