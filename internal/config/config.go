package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Ads       AdsConfig       `mapstructure:"ads"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// RedisConfig enables cross-process rule locks. An empty Addr keeps locks in-process.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type AuthConfig struct {
	Disabled   bool   `mapstructure:"disabled"`
	JWTSecret  string `mapstructure:"jwt_secret"`
	CronSecret string `mapstructure:"cron_secret"`
}

type AdsConfig struct {
	ClientID string        `mapstructure:"client_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
	DryRun   bool          `mapstructure:"dry_run"`

	// Endpoints overrides the regional API hosts, keyed by NA/EU/FE.
	Endpoints map[string]string `mapstructure:"endpoints"`
}

type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Sweep        string        `mapstructure:"sweep"`
	SweepTimeout time.Duration `mapstructure:"sweep_timeout"`
	StaleAfter   time.Duration `mapstructure:"stale_after"`
	Timezone     string        `mapstructure:"timezone"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10m")
	v.SetDefault("redis.key_prefix", "adsoptimizer:rule-lock:")
	v.SetDefault("auth.disabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.cron_secret", "")
	v.SetDefault("ads.client_id", "")
	v.SetDefault("ads.timeout", "15s")
	v.SetDefault("ads.dry_run", true)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sweep", "@every 1m")
	v.SetDefault("scheduler.sweep_timeout", "5m")
	v.SetDefault("scheduler.stale_after", "30m")
	v.SetDefault("scheduler.timezone", "UTC")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
