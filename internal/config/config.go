package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type Log struct {
	Level string `json:"level" yaml:"level"`
}

type Tushare struct {
	Token                 string `json:"token" yaml:"token"`
	Endpoint              string `json:"endpoint" yaml:"endpoint"`
	TimeoutMS             int    `json:"timeout_ms" yaml:"timeout_ms"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	Burst                 int    `json:"burst" yaml:"burst"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
}

type Binance struct {
	Endpoint             string `json:"endpoint" yaml:"endpoint"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	Burst                int    `json:"burst" yaml:"burst"`
}

type Config struct {
	Server  Server  `json:"server" yaml:"server"`
	Log     Log     `json:"log" yaml:"log"`
	Tushare Tushare `json:"tushare" yaml:"tushare"`
	Binance Binance `json:"binance" yaml:"binance"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 60},
		Log:    Log{Level: "info"},
		Tushare: Tushare{
			Endpoint:  "https://api.tushare.pro",
			TimeoutMS: 30000,

			// stk_mins is quota limited per minute on most accounts.
			MaxRequestsPerMinute: 2,
			Burst:                2,
		},
		Binance: Binance{
			Endpoint:             "https://api.binance.com",
			MaxRequestsPerMinute: 1200,
			Burst:                10,
		},
	}
}

// Load reads a JSON or YAML (by extension) config from path. If path is empty it tries
// config.json then config.yaml; a missing file yields defaults. Environment variables
// override select fields, including the Tushare token.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("TUSHARE_TOKEN"); v != "" {
		cfg.Tushare.Token = strings.TrimSpace(v)
	}
	if v := os.Getenv("TUSHARE_API_URL"); v != "" {
		cfg.Tushare.Endpoint = v
	}
	if v := os.Getenv("TUSHARE_TIMEOUT_MS"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Tushare.TimeoutMS = x
		}
	}
	if v := os.Getenv("TUSHARE_MAX_RPM"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Tushare.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("TUSHARE_BURST"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Tushare.Burst = x
		}
	}
	if v := os.Getenv("TUSHARE_MIN_INTERVAL_SEC"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Tushare.MinRequestIntervalSec = x
		}
	}

	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Binance.Endpoint = v
	}
	if v := os.Getenv("BINANCE_MAX_RPM"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Binance.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("BINANCE_BURST"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Binance.Burst = x
		}
	}
}

// atoi returns -1 for anything that is not an integer so callers leave the field alone.
func atoi(s string) int {
	var x int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &x); err != nil {
		return -1
	}
	return x
}

func (s Server) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

func (t Tushare) Timeout() time.Duration {
	return time.Duration(t.TimeoutMS) * time.Millisecond
}

func (t Tushare) MinInterval() time.Duration {
	return time.Duration(t.MinRequestIntervalSec) * time.Second
}
