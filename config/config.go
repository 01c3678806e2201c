package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultPath = "./config/config.yaml"
	envPrefix   = "GEOGLITCH"
)

type HTTP struct {
	Addr              string        `yaml:"addr" split_words:"true"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout" split_words:"true"`
	RequestTimeout    time.Duration `yaml:"requestTimeout" split_words:"true"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout" split_words:"true"`
}

// GRPC is optional; an empty Addr disables the gRPC listener.
type GRPC struct {
	Addr           string        `yaml:"addr" split_words:"true"`
	DefaultTimeout time.Duration `yaml:"defaultTimeout" split_words:"true"`
}

type WS struct {
	Path              string        `yaml:"path" split_words:"true"`
	PingInterval      time.Duration `yaml:"pingInterval" split_words:"true"`
	WriteTimeout      time.Duration `yaml:"writeTimeout" split_words:"true"`
	MaxMessageBytes   int64         `yaml:"maxMessageBytes" split_words:"true"`
	MessagesPerSecond float64       `yaml:"messagesPerSecond" split_words:"true"`
	Burst             int           `yaml:"burst" split_words:"true"`
	SendQueueSize     int           `yaml:"sendQueueSize" split_words:"true"`
	AllowedOrigins    []string      `yaml:"allowedOrigins" split_words:"true"`
}

// Presence tunes the join/leave journal.
type Presence struct {
	JournalQueueSize int           `yaml:"journalQueueSize" split_words:"true"`
	JournalTimeout   time.Duration `yaml:"journalTimeout" split_words:"true"`
}

type ICEServer struct {
	URLs       []string `yaml:"urls" json:"urls"`
	Username   string   `yaml:"username" json:"username,omitempty"`
	Credential string   `yaml:"credential" json:"credential,omitempty"`
}

type WebRTC struct {
	ICEServers []ICEServer `yaml:"iceServers" ignored:"true"`
	// ICEServersJSON replaces ICEServers when set, e.g.
	// GEOGLITCH_WEBRTC_ICE_SERVERS_JSON='[{"urls":["stun:stun.example.org:3478"]}]'.
	ICEServersJSON string `yaml:"-" split_words:"true"`
}

type CORS struct {
	AllowedOrigins   []string `yaml:"allowedOrigins" split_words:"true"`
	AllowCredentials bool     `yaml:"allowCredentials" split_words:"true"`
	MaxAge           int      `yaml:"maxAge" split_words:"true"`
}

type Logging struct {
	Env              string `yaml:"env" split_words:"true"`       // dev|prod
	Service          string `yaml:"service" split_words:"true"`   // presence-service
	Version          string `yaml:"version" split_words:"true"`   // v0.1.0
	Backend          string `yaml:"backend" split_words:"true"`   // std|zap
	Level            string `yaml:"level" split_words:"true"`     // debug|info|warn|error
	AddSource        bool   `yaml:"addSource" split_words:"true"` // false|true
	Debug            bool   `yaml:"debug" split_words:"true"`     // false|true
	SampleInitial    int    `yaml:"sampleInitial" split_words:"true"`
	SampleThereafter int    `yaml:"sampleThereafter" split_words:"true"`
}

// Postgres is optional; an empty DSN disables the presence journal.
type Postgres struct {
	DSN             string        `yaml:"dsn" split_words:"true"`
	MaxConns        int32         `yaml:"maxConns" split_words:"true"`
	MinConns        int32         `yaml:"minConns" split_words:"true"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime" split_words:"true"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime" split_words:"true"`
	ApplicationName string        `yaml:"applicationName" split_words:"true"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	WS       WS       `yaml:"ws"`
	Presence Presence `yaml:"presence"`
	WebRTC   WebRTC   `yaml:"webrtc"`
	CORS     CORS     `yaml:"cors"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
}

// Load reads .env (if any), the YAML file at CONFIG_PATH and GEOGLITCH_*
// overrides, in that order.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return LoadFrom(defaultPath, true)
	}
	return LoadFrom(path, false)
}

// LoadFrom is Load without the .env step. A missing file is only tolerated
// when optional is set; defaults and env overrides still apply.
func LoadFrom(path string, optional bool) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if raw := strings.TrimSpace(cfg.WebRTC.ICEServersJSON); raw != "" {
		var servers []ICEServer
		if err := json.Unmarshal([]byte(raw), &servers); err != nil {
			return nil, fmt.Errorf("%s_WEBRTC_ICE_SERVERS_JSON: %w", envPrefix, err)
		}
		cfg.WebRTC.ICEServers = servers
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.setDefaults()

	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if !strings.HasPrefix(c.WS.Path, "/") {
		return fmt.Errorf("ws.path must start with '/': %q", c.WS.Path)
	}
	if c.WS.MessagesPerSecond < 0 {
		return errors.New("ws.messagesPerSecond must not be negative")
	}
	if c.WS.PingInterval < time.Second {
		return fmt.Errorf("ws.pingInterval too short: %s", c.WS.PingInterval)
	}
	if _, err := c.WebRTC.PionICEServers(); err != nil {
		return fmt.Errorf("webrtc: %w", err)
	}
	switch c.Logging.Backend {
	case "std", "zap":
	default:
		return fmt.Errorf("logging.backend must be std or zap, got %q", c.Logging.Backend)
	}
	if c.Postgres.MinConns > c.Postgres.MaxConns && c.Postgres.MaxConns > 0 {
		return errors.New("postgres.minConns exceeds postgres.maxConns")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = 5 * time.Second
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = 10 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.GRPC.DefaultTimeout == 0 {
		c.GRPC.DefaultTimeout = 5 * time.Second
	}

	if c.WS.Path == "" {
		c.WS.Path = "/ws"
	}
	if c.WS.PingInterval == 0 {
		c.WS.PingInterval = 30 * time.Second
	}
	if c.WS.WriteTimeout == 0 {
		c.WS.WriteTimeout = 5 * time.Second
	}
	if c.WS.MaxMessageBytes == 0 {
		c.WS.MaxMessageBytes = 64 << 10
	}
	if c.WS.MessagesPerSecond == 0 {
		c.WS.MessagesPerSecond = 20
	}
	if c.WS.Burst == 0 {
		c.WS.Burst = 40
	}
	if c.WS.SendQueueSize == 0 {
		c.WS.SendQueueSize = 64
	}

	if c.Presence.JournalQueueSize == 0 {
		c.Presence.JournalQueueSize = 1024
	}
	if c.Presence.JournalTimeout == 0 {
		c.Presence.JournalTimeout = 2 * time.Second
	}

	if len(c.WebRTC.ICEServers) == 0 {
		c.WebRTC.ICEServers = []ICEServer{{URLs: []string{DefaultSTUNServer}}}
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "presence-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	if c.Postgres.ApplicationName == "" {
		c.Postgres.ApplicationName = c.Logging.Service
	}
}
