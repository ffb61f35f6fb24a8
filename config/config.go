// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the storefront configuration from defaults, an
// optional YAML file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STOREFRONT_"

type Config struct {
	App struct {
		Name       string `koanf:"name"`
		Version    string `koanf:"version"`
		ListenAddr string `koanf:"listen_addr"`
		Port       string `koanf:"port"`
		BaseURL    string `koanf:"base_url"`
	} `koanf:"app"`

	Log struct {
		Level      string `koanf:"level"`
		File       string `koanf:"file"`
		MaxSizeMB  int    `koanf:"max_size_mb"`
		MaxBackups int    `koanf:"max_backups"`
		MaxAgeDays int    `koanf:"max_age_days"`
	} `koanf:"log"`

	Backend struct {
		URI     string        `koanf:"uri"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"backend"`

	Payment struct {
		Key             string        `koanf:"key"`
		Currency        string        `koanf:"currency"`
		Theme           string        `koanf:"theme"`
		MinorUnitFactor int64         `koanf:"minor_unit_factor"`
		WidgetTimeout   time.Duration `koanf:"widget_timeout"`
	} `koanf:"payment"`

	Catalog struct {
		RedisAddr     string        `koanf:"redis_addr"`
		RedisPassword string        `koanf:"redis_password"`
		TTL           time.Duration `koanf:"ttl"`
	} `koanf:"catalog"`

	Sessions struct {
		Max     int           `koanf:"max"`
		IdleTTL time.Duration `koanf:"idle_ttl"`
	} `koanf:"sessions"`

	Telemetry struct {
		Tracing  bool `koanf:"tracing"`
		Profiler bool `koanf:"profiler"`
	} `koanf:"telemetry"`
}

var defaults = map[string]any{
	"app.name":                  "storefront",
	"app.version":               "1.0.0",
	"app.port":                  "8080",
	"log.level":                 "info",
	"log.max_size_mb":           100,
	"log.max_backups":           5,
	"log.max_age_days":          14,
	"backend.timeout":           "10s",
	"payment.currency":          "INR",
	"payment.theme":             "#3399cc",
	"payment.minor_unit_factor": 100,
	"payment.widget_timeout":    "15m",
	"catalog.ttl":               "5m",
	"sessions.max":              10000,
	"sessions.idle_ttl":         "2h",
}

// legacyEnv maps the plain variable names of earlier deployments to keys.
// They rank below the STOREFRONT_ variables.
var legacyEnv = map[string]string{
	"PORT":            "app.port",
	"LISTEN_ADDR":     "app.listen_addr",
	"BASE_URL":        "app.base_url",
	"BACKEND_URI":     "backend.uri",
	"ENABLE_TRACING":  "telemetry.tracing",
	"ENABLE_PROFILER": "telemetry.profiler",
}

// Load reads the configuration. path names an optional YAML file; when it
// is empty, STOREFRONT_CONFIG is consulted.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	legacy := map[string]any{}
	for name, key := range legacyEnv {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		if strings.HasPrefix(key, "telemetry.") {
			legacy[key] = v == "1" || strings.EqualFold(v, "true")
			continue
		}
		legacy[key] = v
	}
	if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
		return Config{}, fmt.Errorf("legacy env overlay: %w", err)
	}

	// STOREFRONT_BACKEND__URI, STOREFRONT_PAYMENT__KEY, ...
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Backend.URI == "" {
		return fmt.Errorf("backend.uri required")
	}
	if c.Payment.Key == "" {
		return fmt.Errorf("payment.key required")
	}
	if c.Payment.MinorUnitFactor <= 0 {
		return fmt.Errorf("payment.minor_unit_factor must be positive")
	}
	if c.App.Port == "" {
		return fmt.Errorf("app.port required")
	}
	return nil
}

// Addr is the address the HTTP server listens on.
func (c Config) Addr() string {
	return c.App.ListenAddr + ":" + c.App.Port
}
