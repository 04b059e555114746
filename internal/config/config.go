package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Transport     string `mapstructure:"transport"`
	NatsURL       string `mapstructure:"nats_url"`
	Codec         string `mapstructure:"codec"`
	ChannelPrefix string `mapstructure:"channel_prefix"`

	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	StaleThreshold    time.Duration `mapstructure:"stale_threshold"`
	PresenceRefresh   time.Duration `mapstructure:"presence_refresh"`

	RateLimit  float64 `mapstructure:"rate_limit"`
	RateBurst  int     `mapstructure:"rate_burst"`
	SendBuffer int     `mapstructure:"send_buffer"`
	MaxDrops   int     `mapstructure:"max_drops"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")

	v.SetDefault("transport", "memory")
	v.SetDefault("nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("codec", "json")
	v.SetDefault("channel_prefix", "collab-")

	v.SetDefault("heartbeat_interval", "3s")
	v.SetDefault("stale_threshold", "10s")
	v.SetDefault("presence_refresh", "1s")

	v.SetDefault("rate_limit", 20.0)
	v.SetDefault("rate_burst", 40)
	v.SetDefault("send_buffer", 64)
	v.SetDefault("max_drops", 16)
}

// Flags declares the command-line overrides understood by Load.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config-env", "", "config file suffix: config/config.<env>.yaml")
	fs.Int("port", 0, "HTTP port")
	fs.String("transport", "", "presence channel transport: memory or nats")
	fs.String("nats-url", "", "NATS server URL")
	fs.String("codec", "", "wire codec: json or msgpack")
	fs.String("log-level", "", "log level")
	return fs
}

// Load reads .env, then config/config.<env>.yaml, then environment
// variables, then flags set on fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Str("module", "config").Msg("no .env file, using process environment")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix("presence")
	v.AutomaticEnv()

	env := os.Getenv("CONFIG_ENV")
	if fs != nil {
		if f := fs.Lookup("config-env"); f != nil && f.Changed {
			env = f.Value.String()
		}
		for key, flag := range map[string]string{
			"port":      "port",
			"transport": "transport",
			"nats_url":  "nats-url",
			"codec":     "codec",
			"log_level": "log-level",
		} {
			if f := fs.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("transport", cfg.Transport).Str("codec", cfg.Codec).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case "memory", "nats":
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.HeartbeatInterval <= 0 || c.StaleThreshold <= c.HeartbeatInterval {
		return fmt.Errorf("stale_threshold (%s) must exceed heartbeat_interval (%s)", c.StaleThreshold, c.HeartbeatInterval)
	}
	return nil
}
