// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

// Package config loads and validates the Medialetter configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML
// file, then environment variables. All validation happens before any
// network call is made.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	TMDB          TMDBConfig          `koanf:"tmdb"`
	EmailTemplate EmailTemplateConfig `koanf:"email_template"`
	Email         EmailConfig         `koanf:"email"`
	Recipients    []string            `koanf:"recipients"`
	Scheduler     SchedulerConfig     `koanf:"scheduler"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds the media-server connection settings.
type ServerConfig struct {
	// Kind selects the server variant: "emby" or "jellyfin".
	// The two differ in URL prefix and auth header format.
	Kind               string   `koanf:"kind" validate:"required,oneof=emby jellyfin"`
	URL                string   `koanf:"url" validate:"required,url"`
	APIToken           string   `koanf:"api_token" validate:"required"`
	WatchedFilmFolders []string `koanf:"watched_film_folders"`
	WatchedTVFolders   []string `koanf:"watched_tv_folders"`
	// ObservedPeriodDays is the lookback window for "recently added".
	ObservedPeriodDays int `koanf:"observed_period_days" validate:"gt=0"`
}

// TMDBConfig holds the metadata-provider credentials.
type TMDBConfig struct {
	APIKey string `koanf:"api_key" validate:"required"`
}

// EmailTemplateConfig holds the static strings rendered into the
// newsletter body.
type EmailTemplateConfig struct {
	Language         string `koanf:"language" validate:"required,oneof=en fr"`
	Subject          string `koanf:"subject" validate:"required"`
	Title            string `koanf:"title" validate:"required"`
	Subtitle         string `koanf:"subtitle"`
	ServerURL        string `koanf:"server_url"`
	ServerOwnerName  string `koanf:"server_owner_name"`
	UnsubscribeEmail string `koanf:"unsubscribe_email"`
}

// EmailConfig holds the SMTP delivery settings.
type EmailConfig struct {
	SMTPServer      string `koanf:"smtp_server" validate:"required"`
	SMTPPort        int    `koanf:"smtp_port" validate:"min=1,max=65535"`
	SMTPUsername    string `koanf:"smtp_username" validate:"required"`
	SMTPPassword    string `koanf:"smtp_password" validate:"required"`
	SMTPSenderEmail string `koanf:"smtp_sender_email" validate:"required,email"`
}

// SchedulerConfig holds the optional cron expression. The process
// itself runs once per invocation; the expression documents the
// external schedule and is only checked for plausibility.
type SchedulerConfig struct {
	Cron string `koanf:"cron"`
}

// LoggingConfig holds the logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate checks the configuration and returns a single aggregate
// error listing every failure, so users can fix everything at once.
func (c *Config) Validate() error {
	var errs []string

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if ok := isValidationErrors(err, &verrs); ok {
			for _, fe := range verrs {
				errs = append(errs, describeFieldError(fe))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if len(c.Recipients) == 0 {
		errs = append(errs, "at least one recipient is required")
	}

	if c.Scheduler.Cron != "" && !ValidCronExpression(c.Scheduler.Cron) {
		errs = append(errs, fmt.Sprintf("invalid cron expression %q", c.Scheduler.Cron))
	}

	if len(errs) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:")
	for _, e := range errs {
		b.WriteString("\n- ")
		b.WriteString(e)
	}
	return fmt.Errorf("%s", b.String())
}

// normalize cleans up loaded values before validation.
func (c *Config) normalize() {
	c.Server.URL = strings.TrimSuffix(strings.TrimSpace(c.Server.URL), "/")
	c.Server.Kind = strings.ToLower(strings.TrimSpace(c.Server.Kind))
	c.EmailTemplate.Language = strings.ToLower(strings.TrimSpace(c.EmailTemplate.Language))
	for i, r := range c.Recipients {
		c.Recipients[i] = strings.TrimSpace(r)
	}
}

// isValidationErrors unwraps a validator error list.
func isValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns this type directly
	if ok {
		*target = verrs
	}
	return ok
}

// describeFieldError turns a validator field error into a readable
// message using the koanf-style path.
func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ValidCronExpression checks a 5-field cron expression for field count
// and character-class plausibility only. Full cron semantics are the
// external scheduler's concern, not ours.
func ValidCronExpression(expr string) bool {
	parts := strings.Fields(strings.TrimSpace(expr))
	if len(parts) != 5 {
		return false
	}
	for _, part := range parts {
		for _, r := range part {
			switch {
			case r >= '0' && r <= '9':
			case r == '*' || r == '/' || r == '-' || r == ',':
			default:
				return false
			}
		}
	}
	return true
}
