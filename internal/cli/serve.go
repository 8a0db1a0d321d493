// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/findskills/findskills-server/internal/config"
	"github.com/findskills/findskills-server/internal/rest"
	"github.com/findskills/findskills-server/internal/store/bolt"
	"github.com/findskills/findskills-server/pkg/logging"
	"github.com/findskills/findskills-server/pkg/passkey"
	"github.com/findskills/findskills-server/pkg/profile"
	"github.com/findskills/findskills-server/pkg/ratelimit"
	"github.com/findskills/findskills-server/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FindSkills REST API server",
	Long: `Starts the HTTP server that handles password and passkey
authentication, sessions, and profile lookups. The server runs until
it receives SIGINT or SIGTERM, then shuts down gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServer(cfg)
	},
}

func runServer(cfg *config.Config) error {
	logger := logging.NewSlogAdapter(&logging.SlogConfig{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})

	logger.Info("Starting findskills-server",
		logging.String("version", Version),
		logging.String("storage", cfg.Storage.Backend))

	profiles, credentials, cleanup, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Seed {
		n, err := profile.SeedDemo(context.Background(), profiles)
		if err != nil {
			return fmt.Errorf("failed to seed demo profiles: %w", err)
		}
		if n > 0 {
			logger.Info("Seeded demo profiles", logging.Int("count", n))
		}
	}

	coordinator, err := passkey.NewCoordinator(passkey.CoordinatorParams{
		Config:      &cfg.WebAuthn,
		Profiles:    profiles,
		Credentials: credentials,
	})
	if err != nil {
		return fmt.Errorf("failed to create webauthn coordinator: %w", err)
	}

	codec, err := buildCodec(cfg)
	if err != nil {
		return err
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return err
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	limiter := ratelimit.New(&cfg.RateLimit)
	defer limiter.Stop()

	server, err := rest.NewServer(&rest.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		Profiles:      profiles,
		Credentials:   credentials,
		Coordinator:   coordinator,
		Codec:         codec,
		CORSOrigins:   cfg.Server.CORSOrigins,
		SecureCookies: cfg.Auth.SecureCookies,
		Version:       Version,
		TLSConfig:     tlsConfig,
		Logger:        logger,
		MetricsPath:   metricsPath,
		RateLimiter:   limiter,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return server.Stop(ctx)
}

// openStores builds the profile and credential stores for the configured
// backend. The returned cleanup func closes the underlying database.
func openStores(cfg *config.Config) (profile.Store, passkey.CredentialStore, func(), error) {
	switch cfg.Storage.Backend {
	case "bolt":
		db, err := bolt.Open(cfg.Storage.Path, nil)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open database %s: %w", cfg.Storage.Path, err)
		}
		return db.Profiles(), db.Credentials(), func() { db.Close() }, nil
	default:
		return profile.NewMemoryStore(), passkey.NewMemoryCredentialStore(), func() {}, nil
	}
}

func buildCodec(cfg *config.Config) (session.Codec, error) {
	if cfg.Auth.TokenFormat == "signed" {
		codec, err := session.NewSignedCodec([]byte(cfg.Auth.Secret))
		if err != nil {
			return nil, fmt.Errorf("failed to create session codec: %w", err)
		}
		return codec, nil
	}
	return session.NewLegacyCodec(), nil
}

func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	if !cfg.TLS.Enabled {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
