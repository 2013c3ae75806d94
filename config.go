package statuscodes

import (
	"os"
	"time"

	headerrules "github.com/always-cache/status-codes/pkg/header-rules"
	ratelimit "github.com/always-cache/status-codes/pkg/rate-limit"
	"github.com/always-cache/status-codes/store"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 3000
	DefaultVideoPath   = "sample.mp4"
	DefaultUploadLimit = 1 << 20
)

type Config struct {
	// Port to listen on. Only used by the command.
	Port int `yaml:"port"`
	// Base URL used when linking to other endpoints, e.g. "http://localhost:3000".
	// Derived from the request host if empty.
	BaseURL string `yaml:"baseUrl"`
	// Video served by /video, relative to the working directory.
	VideoPath string `yaml:"videoPath"`
	// Maximum request body size for /upload-data, in bytes.
	UploadLimit int64          `yaml:"uploadLimit"`
	RateLimit   RateLimitConfig `yaml:"rateLimit"`
	Delays      DelayConfig     `yaml:"delays"`
	// Extra response headers for matching requests.
	Rules headerrules.Rules `yaml:"rules"`
	// Storage for resource versions. An in-memory provider is used if nil.
	Versions store.VersionProvider `yaml:"-"`
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger `yaml:"-"`
}

type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type DelayConfig struct {
	// Time until the accepted request of /post-endpoint202 is processed.
	Accepted time.Duration `yaml:"accepted"`
	// Time /timeout holds the request before answering 408.
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	// Time /gateway-timeout waits for the simulated upstream before answering 504.
	GatewayTimeout time.Duration `yaml:"gatewayTimeout"`
}

// DefaultConfig returns the configuration the server runs with when nothing is overridden.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.VideoPath == "" {
		c.VideoPath = DefaultVideoPath
	}
	if c.UploadLimit <= 0 {
		c.UploadLimit = DefaultUploadLimit
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = ratelimit.DefaultLimit
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = ratelimit.DefaultWindow
	}
	if c.Delays.Accepted <= 0 {
		c.Delays.Accepted = 5 * time.Second
	}
	if c.Delays.RequestTimeout <= 0 {
		c.Delays.RequestTimeout = 10 * time.Second
	}
	if c.Delays.GatewayTimeout <= 0 {
		c.Delays.GatewayTimeout = 10 * time.Second
	}
	return c
}

// ReadConfig reads a YAML config file.
// Durations are written as Go duration strings, e.g. "10s".
func ReadConfig(filename string) (Config, error) {
	var config Config
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}
