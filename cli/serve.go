package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/auth"
	"storefront/config"
	"storefront/mail"
	"storefront/media"
	"storefront/notify"
	"storefront/payment"
	"storefront/routes"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the storefront HTTP API.

Migrates the database on start, serves uploads from UPLOAD_DIR and shuts
down gracefully on SIGINT or SIGTERM, waiting for background mail jobs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(rootOpts)
			if port != "" {
				cfg.Port = port
			}
			return runServe(cmd.Context(), cfg, rootOpts)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, opts *RootOptions) error {
	if !opts.Verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	}

	st, closeDB, err := openStore(cfg, opts)
	if err != nil {
		return err
	}
	defer closeDB()

	storage, err := media.NewStorage(cfg.UploadDir, cfg.UploadURL, cfg.UploadMaxWidth)
	if err != nil {
		return err
	}

	provider, err := paymentProvider(cfg)
	if err != nil {
		return err
	}
	sender, err := mailSender(ctx, cfg)
	if err != nil {
		return err
	}

	hub := notify.NewHub()
	go hub.Run()
	defer hub.Close()

	handler := routes.NewHandler(routes.Deps{
		Store:    st,
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.TokenTTL),
		Payments: provider,
		Mailer:   sender,
		Media:    storage,
		Hub:      hub,
		Config:   cfg,
	})
	app := routes.NewApp(handler)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	handler.Wait()
	slog.Info("Server stopped")
	return nil
}

// paymentProvider returns nil without error when no provider is configured;
// the payment routes then answer 503.
func paymentProvider(cfg *config.Config) (payment.Provider, error) {
	hosted, err := payment.NewHosted(payment.Config{
		APIURL:      cfg.Payment.APIURL,
		StoreID:     cfg.Payment.StoreID,
		AuthKey:     cfg.Payment.AuthKey,
		TestMode:    cfg.Payment.TestMode,
		SuccessURL:  cfg.Payment.SuccessURL,
		DeclinedURL: cfg.Payment.DeclinedURL,
		CancelURL:   cfg.Payment.CancelURL,
		Attempts:    cfg.Payment.Attempts,
	})
	if errors.Is(err, payment.ErrNotConfigured) {
		slog.Warn("Payment provider not configured, checkout payments are disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.Payment.WebhookSecret == "" {
		slog.Warn("PAYMENT_WEBHOOK_SECRET not set, payment notifications are rejected")
	}
	return hosted, nil
}

func mailSender(ctx context.Context, cfg *config.Config) (mail.Sender, error) {
	if !cfg.MailEnabled() {
		slog.Warn("SES credentials not set, mail is logged instead of sent")
		return mail.LogSender{}, nil
	}
	sender, err := mail.NewSES(ctx, mail.SESConfig{
		Region:          cfg.Mail.AWSRegion,
		AccessKeyID:     cfg.Mail.AWSAccessKeyID,
		SecretAccessKey: cfg.Mail.AWSSecretAccessKey,
		Sender:          cfg.Mail.SenderEmail,
	})
	if err != nil {
		return nil, err
	}
	return sender, nil
}
