package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"cryptoflow/internal/ingest/binance"
	"cryptoflow/pkg/exception"
)

type Config struct {
	App       App       `mapstructure:"app"`
	Log       Log       `mapstructure:"log"`
	Binance   Binance   `mapstructure:"binance"`
	Ingest    Ingest    `mapstructure:"ingest"`
	Hub       Hub       `mapstructure:"hub"`
	DB        DB        `mapstructure:"db"`
	Redis     Redis     `mapstructure:"redis"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Profiling Profiling `mapstructure:"profiling"`
	Retention Retention `mapstructure:"retention"`
}

type App struct {
	Name string `mapstructure:"name"`
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Binance struct {
	WSURL        string   `mapstructure:"ws_url"`
	FuturesWSURL string   `mapstructure:"futures_ws_url"`
	RestURL      string   `mapstructure:"rest_url"`
	TradeSymbols []string `mapstructure:"trade_symbols"`
	DepthSymbols []string `mapstructure:"depth_symbols"`
}

type Ingest struct {
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	MaxReconnect   int           `mapstructure:"max_reconnect"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	Buffer         int           `mapstructure:"buffer"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
}

type Hub struct {
	QueueSize         int           `mapstructure:"queue_size"`
	LivenessTimeout   time.Duration `mapstructure:"liveness_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type DB struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Profiling struct {
	Enabled bool   `mapstructure:"enabled"`
	Server  string `mapstructure:"server"`
}

type Retention struct {
	Days int `mapstructure:"days"`
}

var _keys = []string{
	"app.name", "app.addr", "app.mode",
	"log.level",
	"binance.ws_url", "binance.futures_ws_url", "binance.rest_url", "binance.trade_symbols", "binance.depth_symbols",
	"ingest.startup_timeout", "ingest.max_reconnect", "ingest.backoff_base", "ingest.backoff_max", "ingest.buffer",
	"ingest.ping_interval", "ingest.read_timeout",
	"hub.queue_size", "hub.liveness_timeout", "hub.heartbeat_interval",
	"db.enabled", "db.host", "db.port", "db.user", "db.password", "db.name", "db.sslmode",
	"redis.enabled", "redis.addr", "redis.password", "redis.db",
	"kafka.enabled", "kafka.brokers", "kafka.topic",
	"profiling.enabled", "profiling.server",
	"retention.days",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cryptoflow")
	v.SetDefault("app.addr", ":3000")
	v.SetDefault("app.mode", "release")

	v.SetDefault("log.level", "info")

	v.SetDefault("binance.ws_url", binance.DefaultSpotURL)
	v.SetDefault("binance.futures_ws_url", binance.DefaultFuturesURL)
	v.SetDefault("binance.rest_url", binance.DefaultRestURL)
	v.SetDefault("binance.trade_symbols", binance.DefaultTradeSymbols)
	v.SetDefault("binance.depth_symbols", binance.DefaultDepthSymbols)

	v.SetDefault("ingest.startup_timeout", 10*time.Second)
	v.SetDefault("ingest.max_reconnect", 5)
	v.SetDefault("ingest.backoff_base", time.Second)
	v.SetDefault("ingest.backoff_max", 30*time.Second)
	v.SetDefault("ingest.buffer", 4096)
	v.SetDefault("ingest.ping_interval", 30*time.Second)
	v.SetDefault("ingest.read_timeout", 90*time.Second)

	v.SetDefault("hub.queue_size", 256)
	v.SetDefault("hub.liveness_timeout", 5*time.Minute)
	v.SetDefault("hub.heartbeat_interval", 30*time.Second)

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "cryptoflow")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "cryptoflow.alerts")

	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.server", "http://localhost:4040")

	v.SetDefault("retention.days", 7)
}

// Load reads .env into the process environment, then resolves every key from
// the environment (APP_ADDR for app.addr) over the defaults.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logs.Infof("config: no .env file loaded, using process environment")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range _keys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrap(err, "bind env").With("key", key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(exception.ErrConfigInvalid, err.Error())
	}
	cfg.Binance.TradeSymbols = symbols(cfg.Binance.TradeSymbols)
	cfg.Binance.DepthSymbols = symbols(cfg.Binance.DepthSymbols)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails on settings the process cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.App.Addr == "":
		return invalid("app.addr", "empty")
	case len(c.Binance.TradeSymbols) == 0:
		return invalid("binance.trade_symbols", "empty")
	case len(c.Binance.DepthSymbols) == 0:
		return invalid("binance.depth_symbols", "empty")
	case c.Ingest.StartupTimeout <= 0:
		return invalid("ingest.startup_timeout", "must be positive")
	case c.Ingest.MaxReconnect <= 0:
		return invalid("ingest.max_reconnect", "must be positive")
	case c.Ingest.BackoffBase <= 0 || c.Ingest.BackoffMax < c.Ingest.BackoffBase:
		return invalid("ingest.backoff_base", "must be positive and not above ingest.backoff_max")
	case c.Ingest.Buffer <= 0:
		return invalid("ingest.buffer", "must be positive")
	case c.Ingest.PingInterval <= 0 || c.Ingest.ReadTimeout <= c.Ingest.PingInterval:
		return invalid("ingest.read_timeout", "must be positive and above ingest.ping_interval")
	case c.Hub.QueueSize <= 0:
		return invalid("hub.queue_size", "must be positive")
	case c.Hub.LivenessTimeout <= 0 || c.Hub.HeartbeatInterval <= 0:
		return invalid("hub", "durations must be positive")
	case c.Retention.Days <= 0:
		return invalid("retention.days", "must be positive")
	case c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == ""):
		return invalid("kafka", "brokers and topic required when enabled")
	}
	return nil
}

func invalid(key, reason string) error {
	return errors.Wrap(exception.ErrConfigInvalid, key+" "+reason)
}

// symbols splits comma separated entries into lower-case stream symbols.
func symbols(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
