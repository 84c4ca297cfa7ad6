// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

// Command checkconfig validates a Medialetter configuration without
// sending anything. It runs the static checks always, and the live
// connectivity checks (media server, TMDB, SMTP) unless disabled.
//
// Exit code 0 means the configuration is usable; warnings alone do
// not fail the check.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medialetter/medialetter/internal/checker"
	"github.com/medialetter/medialetter/internal/config"
	"github.com/medialetter/medialetter/internal/logging"
	"github.com/medialetter/medialetter/internal/mail"
	"github.com/medialetter/medialetter/internal/mediaserver"
	"github.com/medialetter/medialetter/internal/tmdb"
)

var (
	configPath     string
	verbose        bool
	noConnectivity bool
)

func main() {
	cmd := &cobra.Command{
		Use:           "checkconfig",
		Short:         "Validate the Medialetter configuration",
		Long:          "Validate the Medialetter configuration: static rules plus live connectivity checks against the media server, TMDB, and the SMTP server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCheck,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file (default: search standard locations)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVar(&noConnectivity, "no-connectivity", false, "skip live connectivity checks")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: "console"})

	cfg, err := config.Load(configPath)
	if err != nil {
		// A config that fails to load still deserves a structured
		// report rather than a bare error.
		fmt.Fprintf(cmd.OutOrStdout(), "Errors (1):\n  ✗ %v\nConfiguration is NOT usable.\n", err)
		return fmt.Errorf("configuration check failed")
	}

	c := checker.New(cfg, nil, nil, nil)
	if !noConnectivity {
		server := mediaserver.NewClient(mediaserver.Kind(cfg.Server.Kind), cfg.Server.URL, cfg.Server.APIToken)
		provider := tmdb.NewClient(cfg.TMDB.APIKey)
		mailer := mail.New(mail.SMTPConfig{
			Host:     cfg.Email.SMTPServer,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			Sender:   cfg.Email.SMTPSenderEmail,
		})
		c = checker.New(cfg, server, provider, mailer)
	}

	ok := c.CheckAll(cmd.Context())
	c.Report(cmd.OutOrStdout())

	if !ok {
		return fmt.Errorf("configuration check failed")
	}
	return nil
}
