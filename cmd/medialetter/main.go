// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

// Command medialetter runs one newsletter cycle: query the media
// server for recently added items, enrich them with TMDB metadata,
// render the HTML email, and deliver it to every recipient.
//
// The process runs once and exits; recurring delivery is the job of an
// external scheduler (cron, systemd timer).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medialetter/medialetter/internal/aggregate"
	"github.com/medialetter/medialetter/internal/config"
	"github.com/medialetter/medialetter/internal/logging"
	"github.com/medialetter/medialetter/internal/mail"
	"github.com/medialetter/medialetter/internal/mediaserver"
	"github.com/medialetter/medialetter/internal/models"
	"github.com/medialetter/medialetter/internal/render"
	"github.com/medialetter/medialetter/internal/tmdb"
)

// sender is the delivery surface the pipeline needs.
type sender interface {
	Send(ctx context.Context, subject, htmlBody string, recipients []string) error
}

func main() {
	configPath := flag.String("config", "", "path to the configuration file (default: search standard locations)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		// Fatal exits with status 1 after the event is written.
		logging.Fatal().Err(err).Msg("Newsletter run failed")
	}
}

// run loads the configuration, wires the real clients, and executes
// the pipeline.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	server := mediaserver.NewClient(mediaserver.Kind(cfg.Server.Kind), cfg.Server.URL, cfg.Server.APIToken)
	provider := tmdb.NewCircuitBreakerClient(cfg.TMDB.APIKey)
	mailer := mail.New(mail.SMTPConfig{
		Host:     cfg.Email.SMTPServer,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		Sender:   cfg.Email.SMTPSenderEmail,
	})

	return runPipeline(ctx, cfg, server, provider, mailer)
}

// runPipeline executes one full newsletter cycle against already-wired
// dependencies.
func runPipeline(ctx context.Context, cfg *config.Config, server *mediaserver.Client, provider tmdb.Provider, mailer sender) error {
	cutoff := time.Now().AddDate(0, 0, -cfg.Server.ObservedPeriodDays)
	logging.Info().
		Str("server", cfg.Server.URL).
		Str("kind", cfg.Server.Kind).
		Time("cutoff", cutoff).
		Msg("Starting newsletter run")

	filmIDs, err := resolveFolders(ctx, server, cfg.Server.WatchedFilmFolders)
	if err != nil {
		return fmt.Errorf("film folders: %w", err)
	}
	tvIDs, err := resolveFolders(ctx, server, cfg.Server.WatchedTVFolders)
	if err != nil {
		return fmt.Errorf("tv folders: %w", err)
	}

	var items []models.RawItem
	for _, folderIDs := range [][]string{filmIDs, tvIDs} {
		if len(folderIDs) == 0 {
			continue
		}
		batch, err := server.RecentItems(ctx, folderIDs, cutoff)
		if err != nil {
			return fmt.Errorf("recent items: %w", err)
		}
		items = append(items, batch...)
	}
	logging.Info().Int("items", len(items)).Msg("Fetched recently added items")

	result := aggregate.New(provider, server).Aggregate(ctx, items)
	logging.Info().
		Int("movies", len(result.Movies)).
		Int("series", len(result.Series)).
		Msg("Aggregated newsletter content")

	body, err := render.Render(render.Data{
		Movies: result.Movies,
		Series: result.Series,
		Stats:  libraryStats(ctx, server, filmIDs, tvIDs),
	}, render.Options{
		Language:         cfg.EmailTemplate.Language,
		Title:            cfg.EmailTemplate.Title,
		Subtitle:         cfg.EmailTemplate.Subtitle,
		ServerURL:        cfg.EmailTemplate.ServerURL,
		ServerOwnerName:  cfg.EmailTemplate.ServerOwnerName,
		UnsubscribeEmail: cfg.EmailTemplate.UnsubscribeEmail,
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := mailer.Send(ctx, cfg.EmailTemplate.Subject, body, cfg.Recipients); err != nil {
		return fmt.Errorf("delivery: %w", err)
	}

	logging.Info().Int("recipients", len(cfg.Recipients)).Msg("Newsletter run complete")
	return nil
}

// resolveFolders maps configured folder names to library IDs and warns
// when names resolve to nothing.
func resolveFolders(ctx context.Context, server *mediaserver.Client, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ids, err := server.ResolveFolderIDs(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		logging.Warn().Strs("folders", names).Msg("Configured folders resolved to no library IDs")
	}
	return ids, nil
}

// libraryStats counts totals for the footer. Failures only cost the
// stats line, never the newsletter.
func libraryStats(ctx context.Context, server *mediaserver.Client, filmIDs, tvIDs []string) *models.LibraryStats {
	if len(filmIDs) == 0 && len(tvIDs) == 0 {
		return nil
	}

	stats := &models.LibraryStats{}
	for _, id := range filmIDs {
		count, err := server.CountItems(ctx, id, models.ItemTypeMovie)
		if err != nil {
			logging.Warn().Err(err).Str("folder", id).Msg("Movie count failed, omitting library stats")
			return nil
		}
		stats.TotalMovies += count
	}
	for _, id := range tvIDs {
		count, err := server.CountItems(ctx, id, models.ItemTypeSeries)
		if err != nil {
			logging.Warn().Err(err).Str("folder", id).Msg("Series count failed, omitting library stats")
			return nil
		}
		stats.TotalSeries += count
	}
	return stats
}
