package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Rainforest   RainforestConfig
	Ingest       IngestConfig
	Hydration    HydrationConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHELFRIVAL_APP_ENV" required:"true"`
	Port         string `envconfig:"SHELFRIVAL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHELFRIVAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHELFRIVAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHELFRIVAL_DB_DSN"`
	Driver string `envconfig:"SHELFRIVAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHELFRIVAL_DB_HOST"`
	LegacyPort     int    `envconfig:"SHELFRIVAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHELFRIVAL_DB_USER"`
	LegacyPassword string `envconfig:"SHELFRIVAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHELFRIVAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHELFRIVAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHELFRIVAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHELFRIVAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHELFRIVAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHELFRIVAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHELFRIVAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHELFRIVAL_REDIS_ADDR"`
	Password     string        `envconfig:"SHELFRIVAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHELFRIVAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHELFRIVAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHELFRIVAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHELFRIVAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHELFRIVAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHELFRIVAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type RainforestConfig struct {
	APIKey     string        `envconfig:"SHELFRIVAL_RAINFOREST_API_KEY" required:"true"`
	BaseURL    string        `envconfig:"SHELFRIVAL_RAINFOREST_BASE_URL" default:"https://api.rainforestapi.com/request"`
	Timeout    time.Duration `envconfig:"SHELFRIVAL_RAINFOREST_TIMEOUT" default:"30s"`
	VideoCount int           `envconfig:"SHELFRIVAL_RAINFOREST_VIDEO_COUNT" default:"20"`
}

// IngestConfig tunes the multi-ASIN import waves. The upstream API rate
// limits per key, so fetches go out in small fixed-width waves with a pause
// between them.
type IngestConfig struct {
	MaxBatchASINs  int           `envconfig:"SHELFRIVAL_INGEST_MAX_BATCH_ASINS" default:"10"`
	FetchWaveWidth int           `envconfig:"SHELFRIVAL_INGEST_FETCH_WAVE_WIDTH" default:"3"`
	FetchWaveDelay time.Duration `envconfig:"SHELFRIVAL_INGEST_FETCH_WAVE_DELAY" default:"500ms"`
	SuggestLimit   int           `envconfig:"SHELFRIVAL_INGEST_SUGGEST_LIMIT" default:"8"`
}

type HydrationConfig struct {
	QueueKey    string        `envconfig:"SHELFRIVAL_HYDRATION_QUEUE_KEY" default:"hydration:jobs"`
	PopTimeout  time.Duration `envconfig:"SHELFRIVAL_HYDRATION_POP_TIMEOUT" default:"5s"`
	MaxAttempts int           `envconfig:"SHELFRIVAL_HYDRATION_MAX_ATTEMPTS" default:"3"`
	WaveWidth   int           `envconfig:"SHELFRIVAL_HYDRATION_WAVE_WIDTH" default:"3"`
	RetryBase   time.Duration `envconfig:"SHELFRIVAL_HYDRATION_RETRY_BASE" default:"1s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHELFRIVAL_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
