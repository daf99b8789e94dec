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
	"go.uber.org/zap"

	"github.com/atbabers/axiomguard/internal/config"
	"github.com/atbabers/axiomguard/internal/transport"
)

// newServeCmd returns a cobra.Command that runs the NATS service.
func newServeCmd() *cobra.Command {
	var natsURL string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over NATS request/reply",
		Long: `Subscribe to the heal, feedback and stats subjects and answer JSON requests.
Prometheus metrics are served on metrics.addr unless it is empty.

Examples:
  axiomguard serve
  axiomguard serve --nats nats://nats:4222 --metrics-addr :9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			e, err := engineFromFlags(cmd, func(c *config.Config) {
				if cmd.Flags().Changed("nats") {
					c.NATS.URL = natsURL
				}
				if cmd.Flags().Changed("metrics-addr") {
					c.Metrics.Addr = metricsAddr
				}
				cfg = *c
			})
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			nc, err := transport.Connect(cfg.NATS.URL, "axiomguard", e.logger)
			if err != nil {
				return err
			}
			defer nc.Close()

			opts := []transport.Option{transport.WithLogger(e.logger)}
			if e.store != nil {
				opts = append(opts, transport.WithFeedbackSink(e.store))
			}
			svc := transport.NewService(e.healer, cfg.NATS, opts...)
			if err := svc.Start(nc); err != nil {
				return err
			}

			var srv *http.Server
			if cfg.Metrics.Addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", e.collector.Handler())
				srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						e.logger.Error("metrics server failed", zap.Error(err))
						stop()
					}
				}()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s (subjects %s, %s, %s)\n",
				cfg.NATS.URL, cfg.NATS.HealSubject, cfg.NATS.FeedbackSubject, cfg.NATS.StatsSubject)
			if srv != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Metrics on %s/metrics\n", cfg.Metrics.Addr)
			}

			<-ctx.Done()
			e.logger.Info("shutting down")

			if err := svc.Stop(); err != nil {
				e.logger.Warn("failed to drain subscriptions", zap.Error(err))
			}
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					e.logger.Warn("metrics server shutdown failed", zap.Error(err))
				}
			}
			if err := e.saveWeights(); err != nil {
				e.logger.Warn("failed to save weights", zap.Error(err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats", "", "NATS server URL (overrides nats.url)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics listen address (overrides metrics.addr, empty disables)")

	return cmd
}
