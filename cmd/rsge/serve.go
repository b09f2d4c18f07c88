package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tetrisge/rsge/internal/credentials"
	"github.com/tetrisge/rsge/internal/httpapi"
	"github.com/tetrisge/rsge/internal/journal"
	"github.com/tetrisge/rsge/rsge"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.cfg.ValidateServe(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := a.credentialStore(ctx)
		if err != nil {
			return err
		}
		clientOpts := []rsge.Option{rsge.WithLogger(a.logger)}
		if a.cfg.GuardEnabled {
			j, err := a.submissionJournal(ctx)
			if err != nil {
				return err
			}
			clientOpts = append(clientOpts, rsge.WithSubmissionGuard(j, a.cfg.GuardTTL))
		}

		handler := httpapi.NewHandler(rsge.New(a.soap, clientOpts...), store, []byte(a.cfg.JWTSecret), a.logger)
		srv := &http.Server{
			Addr:              a.cfg.HTTPAddr,
			Handler:           httpapi.NewRouter(handler),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.InfoContext(ctx, "http server started",
				"operation", "serve",
				"outcome", "start",
				"addr", a.cfg.HTTPAddr,
				"rsge_url", a.soap.URL(),
				"submission_guard", a.cfg.GuardEnabled,
			)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		a.logger.Info("http server stopped", "operation", "serve", "outcome", "success")
		return nil
	},
}

func (a *app) credentialStore(ctx context.Context) (credentials.Store, error) {
	if a.cfg.DatabaseURL == "" {
		return credentials.NewStaticStore(rsge.Credentials{
			ServiceUser:     a.cfg.ServiceUser,
			ServicePassword: a.cfg.ServicePassword,
		}), nil
	}
	db, err := credentials.Connect(ctx, a.cfg.DatabaseURL, a.logger)
	if err != nil {
		return nil, err
	}
	return credentials.NewPostgresStore(db), nil
}

func (a *app) submissionJournal(ctx context.Context) (rsge.Journal, error) {
	if a.cfg.RedisURL == "" {
		return rsge.NewMemoryJournal(), nil
	}
	client, err := journal.Connect(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return journal.NewRedisJournal(client), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
