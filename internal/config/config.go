package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	EastMoney EastMoneyConfig `mapstructure:"eastmoney"`
	NAVSync   NAVSyncConfig   `mapstructure:"nav_sync"`
	Settle    SettleConfig    `mapstructure:"settle"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
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

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	NAVSync    string `mapstructure:"nav_sync"`
	Settle     string `mapstructure:"settle"`
	AlertCheck string `mapstructure:"alert_check"`
}

type EastMoneyConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type NAVSyncConfig struct {
	Funds []string `mapstructure:"funds"`
}

type SettleConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type AlertsConfig struct {
	SeriesLookbackFactor int `mapstructure:"series_lookback_factor"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FW")
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
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	// Mutual fund NAVs publish after the 15:00 close; sync in the evening,
	// settle queued trades the next morning, check alerts after each sync.
	v.SetDefault("cron.nav_sync", "0 30 16 * * *")
	v.SetDefault("cron.settle", "0 0 9 * * *")
	v.SetDefault("cron.alert_check", "0 0 17 * * *")
	v.SetDefault("eastmoney.timeout", "30s")
	v.SetDefault("settle.batch_size", 500)
	v.SetDefault("alerts.series_lookback_factor", 2)

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
