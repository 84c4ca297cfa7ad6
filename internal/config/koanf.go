// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched
// in order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/medialetter/config.yaml",
	"/etc/medialetter/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Kind:               "jellyfin",
			ObservedPeriodDays: 30,
		},
		EmailTemplate: EmailTemplateConfig{
			Language: "en",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration using koanf with layered sources:
//  1. Built-in defaults
//  2. YAML config file (explicit path, or searched if path is empty)
//  3. Environment variables (highest priority)
//
// The returned config is normalized and validated; an error here means
// the run must abort before any network call.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := path
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when they arrive as strings from env vars.
var sliceConfigPaths = []string{
	"recipients",
	"server.watched_film_folders",
	"server.watched_tv_folders",
}

// processSliceFields converts comma-separated string values to slices
// for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables return empty and are skipped, so random
// environment variables cannot pollute the configuration.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		"server_kind":          "server.kind",
		"server_url":           "server.url",
		"server_api_token":     "server.api_token",
		"watched_film_folders": "server.watched_film_folders",
		"watched_tv_folders":   "server.watched_tv_folders",
		"observed_period_days": "server.observed_period_days",

		"tmdb_api_key": "tmdb.api_key",

		"template_language":   "email_template.language",
		"template_subject":    "email_template.subject",
		"template_title":      "email_template.title",
		"template_subtitle":   "email_template.subtitle",
		"template_server_url": "email_template.server_url",
		"server_owner_name":   "email_template.server_owner_name",
		"unsubscribe_email":   "email_template.unsubscribe_email",

		"smtp_server":       "email.smtp_server",
		"smtp_port":         "email.smtp_port",
		"smtp_username":     "email.smtp_username",
		"smtp_password":     "email.smtp_password",
		"smtp_sender_email": "email.smtp_sender_email",

		"recipients": "recipients",

		"scheduler_cron": "scheduler.cron",

		"log_level":  "logging.level",
		"log_format": "logging.format",
	}

	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
