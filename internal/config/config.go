package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Log           LogConfig
	Engine        EngineConfig
	Scheduler     SchedulerConfig
	Employability EmployabilityConfig
}

type AppConfig struct {
	AppName       string
	Environment   string
	HTTPPort      string
	MigrationsDir string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

func (c DatabaseConfig) Configured() bool {
	return strings.TrimSpace(c.DBHost) != "" && strings.TrimSpace(c.DBName) != ""
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
	Timeout  time.Duration
}

type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type EngineConfig struct {
	AuditThresholdPoints   float64
	DefaultLimit           int
	MaxLimit               int
	DefaultMinScore        float64
	ClusterMinCandidates   int
	ClusterMinJobs         int
	ClusterKOverride       int
	ClusterSeed            int64
	ModelFreshness         time.Duration
	TFIDFMinDF             int
	TFIDFMaxDF             float64
	TFIDFMaxFeatures       int
	ScoringParallelism     int
	ActiveStateTTL         time.Duration
	CacheInvalidateTimeout time.Duration
}

type SchedulerConfig struct {
	Workers               int
	QueueSize             int
	FullRecomputeInterval time.Duration
	RetrainCheckInterval  time.Duration
	RetryMaxAttempts      int
	RetryBaseDelay        time.Duration
	RetryMaxDelay         time.Duration
	ListenNotifications   bool
}

type EmployabilityConfig struct {
	BaseURL      string
	PathTemplate string
	ScorePath    string
	Timeout      time.Duration
	CacheTTL     time.Duration
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.migrations_dir", "")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.connect_timeout", "5s")
	v.SetDefault("db.pool_max_conns", 10)
	v.SetDefault("db.pool_min_conns", 1)
	v.SetDefault("db.pool_max_conn_lifetime", "1h")
	v.SetDefault("db.pool_max_conn_idle_time", "15m")
	v.SetDefault("db.pool_health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "60s")
	v.SetDefault("redis.timeout", "500ms")

	v.SetDefault("jwt.issuer", "")

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)

	v.SetDefault("engine.audit_threshold_points", 5.0)
	v.SetDefault("engine.default_limit", 20)
	v.SetDefault("engine.max_limit", 100)
	v.SetDefault("engine.default_min_score", 0.0)
	v.SetDefault("engine.cluster_min_candidates", 3)
	v.SetDefault("engine.cluster_min_jobs", 3)
	v.SetDefault("engine.cluster_k_override", 0)
	v.SetDefault("engine.cluster_seed", 42)
	v.SetDefault("engine.model_freshness", "168h")
	v.SetDefault("engine.tfidf_min_df", 1)
	v.SetDefault("engine.tfidf_max_df", 0.95)
	v.SetDefault("engine.tfidf_max_features", 5000)
	v.SetDefault("engine.scoring_parallelism", 8)
	v.SetDefault("engine.active_state_ttl", "30s")
	v.SetDefault("engine.cache_invalidate_timeout", "2s")

	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.queue_size", 256)
	v.SetDefault("scheduler.full_recompute_interval", "24h")
	v.SetDefault("scheduler.retrain_check_interval", "6h")
	v.SetDefault("scheduler.retry_max_attempts", 4)
	v.SetDefault("scheduler.retry_base_delay", "500ms")
	v.SetDefault("scheduler.retry_max_delay", "30s")
	v.SetDefault("scheduler.listen_notifications", true)

	v.SetDefault("employability.base_url", "")
	v.SetDefault("employability.path_template", "/api/v1/employability/{candidate_id}")
	v.SetDefault("employability.score_path", "data.score")
	v.SetDefault("employability.timeout", "2s")
	v.SetDefault("employability.cache_ttl", "10m")
}

// Load reads .env, the process environment and an optional config file. Environment variables
// are the upper-case form of the keys with dots replaced by underscores (db.host -> DB_HOST).
func Load(configFile ...string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if len(configFile) > 0 && strings.TrimSpace(configFile[0]) != "" {
		path = strings.TrimSpace(configFile[0])
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key, env string) string {
		s := strings.TrimSpace(v.GetString(key))
		if s == "" {
			missing = append(missing, env)
		}
		return s
	}
	opt := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	cfg.App = AppConfig{
		AppName:       req("app.name", "APP_NAME"),
		Environment:   req("app.env", "APP_ENV"),
		HTTPPort:      req("http.port", "HTTP_PORT"),
		MigrationsDir: opt("app.migrations_dir"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:                opt("db.host"),
		DBPort:                opt("db.port"),
		DBName:                opt("db.name"),
		DBUser:                opt("db.user"),
		DBPassword:            v.GetString("db.password"),
		DBSSLMode:             opt("db.ssl_mode"),
		ConnectTimeout:        v.GetDuration("db.connect_timeout"),
		PoolMaxConns:          v.GetInt32("db.pool_max_conns"),
		PoolMinConns:          v.GetInt32("db.pool_min_conns"),
		PoolMaxConnLifetime:   v.GetDuration("db.pool_max_conn_lifetime"),
		PoolMaxConnIdleTime:   v.GetDuration("db.pool_max_conn_idle_time"),
		PoolHealthCheckPeriod: v.GetDuration("db.pool_health_check_period"),
	}

	cfg.Redis = RedisConfig{
		Host:     opt("redis.host"),
		Port:     opt("redis.port"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
		TTL:      v.GetDuration("redis.ttl"),
		Timeout:  v.GetDuration("redis.timeout"),
	}

	cfg.JWT = JWTConfig{
		AccessSecret: opt("jwt.access_secret"),
		Issuer:       opt("jwt.issuer"),
	}

	cfg.Log = LogConfig{
		JSON:  v.GetBool("log.json"),
		Debug: v.GetBool("log.debug"),
	}

	cfg.Engine = EngineConfig{
		AuditThresholdPoints:   v.GetFloat64("engine.audit_threshold_points"),
		DefaultLimit:           v.GetInt("engine.default_limit"),
		MaxLimit:               v.GetInt("engine.max_limit"),
		DefaultMinScore:        v.GetFloat64("engine.default_min_score"),
		ClusterMinCandidates:   v.GetInt("engine.cluster_min_candidates"),
		ClusterMinJobs:         v.GetInt("engine.cluster_min_jobs"),
		ClusterKOverride:       v.GetInt("engine.cluster_k_override"),
		ClusterSeed:            v.GetInt64("engine.cluster_seed"),
		ModelFreshness:         v.GetDuration("engine.model_freshness"),
		TFIDFMinDF:             v.GetInt("engine.tfidf_min_df"),
		TFIDFMaxDF:             v.GetFloat64("engine.tfidf_max_df"),
		TFIDFMaxFeatures:       v.GetInt("engine.tfidf_max_features"),
		ScoringParallelism:     v.GetInt("engine.scoring_parallelism"),
		ActiveStateTTL:         v.GetDuration("engine.active_state_ttl"),
		CacheInvalidateTimeout: v.GetDuration("engine.cache_invalidate_timeout"),
	}

	cfg.Scheduler = SchedulerConfig{
		Workers:               v.GetInt("scheduler.workers"),
		QueueSize:             v.GetInt("scheduler.queue_size"),
		FullRecomputeInterval: v.GetDuration("scheduler.full_recompute_interval"),
		RetrainCheckInterval:  v.GetDuration("scheduler.retrain_check_interval"),
		RetryMaxAttempts:      v.GetInt("scheduler.retry_max_attempts"),
		RetryBaseDelay:        v.GetDuration("scheduler.retry_base_delay"),
		RetryMaxDelay:         v.GetDuration("scheduler.retry_max_delay"),
		ListenNotifications:   v.GetBool("scheduler.listen_notifications"),
	}

	cfg.Employability = EmployabilityConfig{
		BaseURL:      opt("employability.base_url"),
		PathTemplate: opt("employability.path_template"),
		ScorePath:    opt("employability.score_path"),
		Timeout:      v.GetDuration("employability.timeout"),
		CacheTTL:     v.GetDuration("employability.cache_ttl"),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if cfg.Engine.MaxLimit <= 0 {
		cfg.Engine.MaxLimit = 100
	}
	if cfg.Engine.DefaultLimit <= 0 || cfg.Engine.DefaultLimit > cfg.Engine.MaxLimit {
		cfg.Engine.DefaultLimit = 20
	}

	return cfg, nil
}
