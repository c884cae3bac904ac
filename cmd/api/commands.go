package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"fenafar_admin/internal/config"
	"fenafar_admin/internal/db"
	httpserver "fenafar_admin/internal/http"
	"fenafar_admin/internal/identity"
	"fenafar_admin/internal/invite"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/mail"
	"fenafar_admin/internal/seed"
	"fenafar_admin/internal/storage"
)

func ServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
}

func MigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg := setup(cmd.Context(), cmd, flags)
			gdb, err := open(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb)
			logger.FromContext(ctx).Info("Migrations applied")
			return nil
		},
	}
}

func SeedCmd(flags *rootFlags) *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the federation admin and default e-mail templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg := setup(cmd.Context(), cmd, flags)
			gdb, err := open(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb)
			_, err = seed.FirstSetup(ctx, gdb, seed.Options{Admin: cfg.Seed, Demo: demo})
			return err
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "also create a sample approved union")
	return cmd
}

// open connects and migrates.
func open(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gdb, err := db.Connect(ctx, cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		db.Close(gdb)
		return nil, err
	}
	return gdb, nil
}

func runServe(cmd *cobra.Command, flags *rootFlags) error {
	ctx, cfg := setup(cmd.Context(), cmd, flags)
	log := logger.FromContext(ctx)

	gdb, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	if _, err := seed.FirstSetup(ctx, gdb, seed.Options{Admin: cfg.Seed}); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	store, err := storage.New(cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	mailer := mail.NewComposer(gdb, mail.NewClient(cfg.Email))
	idp := identity.New(cfg.Supabase)
	invites := invite.NewService(gdb, mailer, idp, invite.Options{
		TTL:     cfg.InviteTTL,
		BaseURL: cfg.BaseURL,
	})

	router := httpserver.NewRouter(httpserver.Options{
		DB:       gdb,
		Config:   cfg,
		Invites:  invites,
		Identity: idp,
		Mailer:   mailer,
		Store:    store,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "address", srv.Addr, "base_url", cfg.BaseURL, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
		log.Debug("Received shutdown signal, initiating graceful shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Server shutdown completed")
	return nil
}
