package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log_level"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	EventQueue     int           `mapstructure:"event_queue"`
	Secret         string        `mapstructure:"secret"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RingTimeout    time.Duration `mapstructure:"ring_timeout"`
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
	OfferRate      float64       `mapstructure:"offer_rate"`
	OfferBurst     int           `mapstructure:"offer_burst"`
	EventRate      float64       `mapstructure:"event_rate"`
	EventBurst     int           `mapstructure:"event_burst"`
	ICEServers     []ICEServer   `mapstructure:"ice_servers"`
	HistoryDSN     string        `mapstructure:"history_dsn"`
	StaticPath     string        `mapstructure:"static_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("event_queue", 1024)
	v.SetDefault("secret", "callroom-dev-secret")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("ring_timeout", "60s")
	v.SetDefault("reap_interval", "5s")
	v.SetDefault("offer_rate", 1.0)
	v.SetDefault("offer_burst", 5)
	v.SetDefault("event_rate", 50.0)
	v.SetDefault("event_burst", 100)
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
	v.SetDefault("history_dsn", "")
	v.SetDefault("static_path", "")
}

// Load reads config/config.<CONFIG_ENV>.yaml when present; CALLROOM_* env
// variables override single keys.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("CALLROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Dur("ring_timeout", cfg.RingTimeout).Bool("auth", cfg.AuthEnabled()).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SendBuffer <= 0 {
		return errors.New("send_buffer must be positive")
	}
	if c.Secret == "" {
		return errors.New("secret must not be empty")
	}
	if c.PingPeriod <= 0 {
		return errors.New("ping_period must be positive")
	}
	if c.RingTimeout < 0 {
		return errors.New("ring_timeout must not be negative")
	}
	return nil
}

func (c *Config) AuthEnabled() bool { return c.JWTSecret != "" }

// WebRTCICEServers converts the configured servers to what clients expect.
func (c *Config) WebRTCICEServers() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, s := range c.ICEServers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, srv)
	}
	return out
}
