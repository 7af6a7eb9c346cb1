package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/privacy-assess/internal/api"
	"github.com/sells-group/privacy-assess/internal/assessment"
	"github.com/sells-group/privacy-assess/internal/auth"
	"github.com/sells-group/privacy-assess/internal/reminder"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the assessment API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tax, err := initTaxonomy()
		if err != nil {
			return err
		}
		src, cache, err := initCatalog(st, tax)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		deps := api.Deps{
			Builder:        assessment.NewBuilder(tax, src),
			Store:          st,
			Auth:           auth.NewAuthenticator(st, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL())),
			Registry:       reg,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			SubscribeRate:  cfg.Subscription.RatePerMinute,
			SubscribeBurst: cfg.Subscription.Burst,
		}
		if cache != nil {
			deps.Invalidator = cache
		}
		server := api.NewServer(deps)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           server.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if cfg.Subscription.WebhookURL != "" {
			notifier := reminder.NewWebhookNotifier(cfg.Subscription.WebhookURL, retryConfig())
			scheduler := reminder.NewScheduler(st, notifier, cfg.Subscription)
			g.Go(func() error {
				scheduler.Run(gctx)
				return nil
			})
		} else {
			zap.L().Warn("subscription.webhook_url not set, reminders disabled")
		}

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
