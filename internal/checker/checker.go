// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

// Package checker validates a configuration end to end: static rules
// first, then live connectivity against the media server, the metadata
// provider, and the SMTP server.
//
// Findings are split into errors (the newsletter cannot run) and
// warnings (it can run but probably not as intended, e.g. a watched
// folder that does not exist on the server).
package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medialetter/medialetter/internal/config"
	"github.com/medialetter/medialetter/internal/mail"
	"github.com/medialetter/medialetter/internal/mediaserver"
	"github.com/medialetter/medialetter/internal/models"
)

// mediaServer is the slice of the media-server client the checker
// needs. Narrow so tests can fake it.
type mediaServer interface {
	SystemInfo(ctx context.Context) (*mediaserver.SystemInfo, error)
	LibraryFolderNames(ctx context.Context) ([]string, error)
	ResolveFolderIDs(ctx context.Context, names []string) ([]string, error)
	RecentItems(ctx context.Context, folderIDs []string, cutoff time.Time) ([]models.RawItem, error)
}

// metadataProvider is the connectivity surface of the TMDB client.
type metadataProvider interface {
	Ping(ctx context.Context) error
}

// smtpChecker is the connectivity surface of the mailer.
type smtpChecker interface {
	CheckConnection(ctx context.Context) error
}

// Checker runs all configuration checks and accumulates findings.
type Checker struct {
	cfg      *config.Config
	server   mediaServer
	provider metadataProvider
	mailer   smtpChecker

	errors   []string
	warnings []string
}

// New creates a Checker. Any of server, provider, and mailer may be
// nil, in which case the corresponding connectivity check is skipped.
func New(cfg *config.Config, server mediaServer, provider metadataProvider, mailer smtpChecker) *Checker {
	return &Checker{
		cfg:      cfg,
		server:   server,
		provider: provider,
		mailer:   mailer,
	}
}

func (c *Checker) addError(format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

func (c *Checker) addWarning(format string, args ...interface{}) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Errors returns the accumulated error findings.
func (c *Checker) Errors() []string { return c.errors }

// Warnings returns the accumulated warning findings.
func (c *Checker) Warnings() []string { return c.warnings }

// OK reports whether no errors were found. Warnings do not fail a
// check run.
func (c *Checker) OK() bool { return len(c.errors) == 0 }

// CheckStatic runs every check that needs no network access.
func (c *Checker) CheckStatic() {
	if err := c.cfg.Validate(); err != nil {
		c.addError("%v", err)
	}

	for _, recipient := range c.cfg.Recipients {
		if !mail.ValidAddress(recipient) {
			c.addWarning("recipient %q does not look like a valid email address", recipient)
		}
	}
	if c.cfg.EmailTemplate.UnsubscribeEmail != "" && !mail.ValidAddress(c.cfg.EmailTemplate.UnsubscribeEmail) {
		c.addWarning("unsubscribe address %q does not look like a valid email address",
			c.cfg.EmailTemplate.UnsubscribeEmail)
	}
	if len(c.cfg.Server.WatchedFilmFolders) == 0 && len(c.cfg.Server.WatchedTVFolders) == 0 {
		c.addWarning("no watched folders configured: the newsletter will always be empty")
	}
}

// CheckServer verifies the media server answers with the configured
// token. Auth and routing failures get targeted guidance.
func (c *Checker) CheckServer(ctx context.Context) {
	if c.server == nil {
		return
	}

	info, err := c.server.SystemInfo(ctx)
	if err != nil {
		var statusErr *mediaserver.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.Status {
			case http.StatusUnauthorized:
				c.addError("media server rejected the API token (HTTP 401): check server.api_token")
				return
			case http.StatusNotFound:
				c.addError("media server endpoint not found (HTTP 404): check server.url and server.kind")
				return
			}
		}
		c.addError("media server unreachable: %v", err)
		return
	}

	if info.ServerName == "" && info.Version == "" {
		c.addWarning("media server answered but reported no system information")
	}
}

// CheckMetadataProvider verifies the TMDB credentials.
func (c *Checker) CheckMetadataProvider(ctx context.Context) {
	if c.provider == nil {
		return
	}

	if err := c.provider.Ping(ctx); err != nil {
		c.addError("metadata provider check failed: %v (check tmdb.api_key)", err)
	}
}

// CheckEmail verifies the SMTP server accepts the configured
// credentials over STARTTLS.
func (c *Checker) CheckEmail(ctx context.Context) {
	if c.mailer == nil {
		return
	}

	if err := c.mailer.CheckConnection(ctx); err != nil {
		c.addError("smtp check failed: %v", err)
	}
}

// CheckFolders warns about configured watched folders the server does
// not know. A typo here silently empties the newsletter, which is why
// it is surfaced even though the run would technically succeed.
func (c *Checker) CheckFolders(ctx context.Context) {
	if c.server == nil {
		return
	}

	known, err := c.server.LibraryFolderNames(ctx)
	if err != nil {
		c.addWarning("could not list library folders: %v", err)
		return
	}

	knownSet := make(map[string]bool, len(known))
	for _, name := range known {
		knownSet[name] = true
	}

	for _, name := range append(append([]string{}, c.cfg.Server.WatchedFilmFolders...), c.cfg.Server.WatchedTVFolders...) {
		if !knownSet[name] {
			c.addWarning("watched folder %q not found on the server (known: %v)", name, known)
		}
	}
}

// CheckRecentItems warns when the configured window and folders yield
// zero items right now.
func (c *Checker) CheckRecentItems(ctx context.Context) {
	if c.server == nil {
		return
	}

	watched := append(append([]string{}, c.cfg.Server.WatchedFilmFolders...), c.cfg.Server.WatchedTVFolders...)
	folderIDs, err := c.server.ResolveFolderIDs(ctx, watched)
	if err != nil {
		c.addWarning("could not resolve watched folders: %v", err)
		return
	}

	cutoff := time.Now().AddDate(0, 0, -c.cfg.Server.ObservedPeriodDays)
	items, err := c.server.RecentItems(ctx, folderIDs, cutoff)
	if err != nil {
		c.addWarning("could not list recent items: %v", err)
		return
	}
	if len(items) == 0 {
		c.addWarning("no items added in the last %d days: the next newsletter would be empty",
			c.cfg.Server.ObservedPeriodDays)
	}
}

// CheckAll runs the static checks and, where a dependency was
// provided, the connectivity checks. It returns OK().
func (c *Checker) CheckAll(ctx context.Context) bool {
	c.CheckStatic()
	c.CheckServer(ctx)
	c.CheckMetadataProvider(ctx)
	c.CheckEmail(ctx)

	// Folder and content checks only make sense against a reachable
	// server; skip them when the server check already failed.
	if c.OK() {
		c.CheckFolders(ctx)
		c.CheckRecentItems(ctx)
	}

	return c.OK()
}

// Report writes a human-readable summary of all findings.
func (c *Checker) Report(w io.Writer) {
	if len(c.errors) > 0 {
		fmt.Fprintf(w, "Errors (%d):\n", len(c.errors))
		for _, e := range c.errors {
			fmt.Fprintf(w, "  ✗ %s\n", e)
		}
	}
	if len(c.warnings) > 0 {
		fmt.Fprintf(w, "Warnings (%d):\n", len(c.warnings))
		for _, warning := range c.warnings {
			fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}
	if len(c.errors) == 0 && len(c.warnings) == 0 {
		fmt.Fprintln(w, "Configuration OK: all checks passed.")
	} else if len(c.errors) == 0 {
		fmt.Fprintln(w, "Configuration OK with warnings.")
	} else {
		fmt.Fprintln(w, "Configuration is NOT usable.")
	}
}
