// Package config loads the gateway configuration: a TOML file for the
// server and RAG sections, environment variables for telemetry.
package config

import (
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/modelgate/modelgate/internal/httperr"
)

// Config is the root of the TOML config file.
type Config struct {
	Server ServerConfig `toml:"server"`
	RAG    RAGConfig    `toml:"rag"`

	Telemetry TelemetryConfig `toml:"-"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	// TimeoutSecs bounds each downstream hop: connect plus response
	// headers on proxied calls, the whole call on vector-DB requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// VerifyTimeoutSecs bounds the /v1/info and /v1/models probes.
	VerifyTimeoutSecs int `toml:"verify_timeout_secs"`
	// DecrementLoadOnCompletion releases a backend's load counter when its
	// response finishes. Off by default: the counter then only grows, which
	// is what keeps equal-load ties rotating.
	DecrementLoadOnCompletion bool `toml:"decrement_load_on_completion"`
}

func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

func (s ServerConfig) VerifyTimeout() time.Duration {
	return time.Duration(s.VerifyTimeoutSecs) * time.Second
}

// MergePolicy selects how retrieved context is merged into chat messages.
type MergePolicy string

const (
	PolicySystemMessage   MergePolicy = "system-message"
	PolicyLastUserMessage MergePolicy = "last-user-message"
)

type RAGConfig struct {
	Enable bool `toml:"enable"`
	// Prompt is an optional preamble placed between the system message and
	// the retrieved context.
	Prompt        string         `toml:"prompt"`
	Policy        MergePolicy    `toml:"policy"`
	ContextWindow uint64         `toml:"context_window"`
	VectorDB      VectorDBConfig `toml:"vector_db"`
}

// VectorDBConfig is the default vector-DB target used when a chat request
// does not carry its own.
type VectorDBConfig struct {
	URL            string   `toml:"url"`
	CollectionName []string `toml:"collection_name"`
	Limit          uint64   `toml:"limit"`
	ScoreThreshold float32  `toml:"score_threshold"`
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Default returns the configuration used when the file omits a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              "0.0.0.0:8080",
			TimeoutSecs:       30,
			VerifyTimeoutSecs: 10,
		},
		RAG: RAGConfig{
			Policy:        PolicyLastUserMessage,
			ContextWindow: 1,
			VectorDB: VectorDBConfig{
				URL:            "http://127.0.0.1:6333",
				CollectionName: []string{"default"},
				Limit:          5,
				ScoreThreshold: 0.5,
			},
		},
	}
}

// Load reads the TOML file at path, validates it, and fills the telemetry
// section from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, httperr.FailedToLoadConfig(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled:      envBool("OTEL_ENABLED", false),
		OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "modelgate"),
	}
	return cfg, nil
}

// Validate checks the values a typo would most likely break.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return httperr.SocketAddr(c.Server.Addr)
	}
	switch c.RAG.Policy {
	case PolicySystemMessage, PolicyLastUserMessage:
	case "":
		c.RAG.Policy = PolicyLastUserMessage
	default:
		return httperr.ArgumentError("unknown rag policy: " + string(c.RAG.Policy))
	}
	if c.RAG.ContextWindow == 0 {
		c.RAG.ContextWindow = 1
	}
	if c.Server.TimeoutSecs <= 0 {
		c.Server.TimeoutSecs = 30
	}
	if c.Server.VerifyTimeoutSecs <= 0 {
		c.Server.VerifyTimeoutSecs = 10
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "1", "t", "true", "TRUE", "True":
		return true
	case "0", "f", "false", "FALSE", "False":
		return false
	}
	return fallback
}
