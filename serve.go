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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/kamilpajak/heartrisk/internal/dashboard"
	"github.com/kamilpajak/heartrisk/internal/metrics"
	"github.com/kamilpajak/heartrisk/internal/predictor"
	"github.com/kamilpajak/heartrisk/internal/stubserver"
	"github.com/kamilpajak/heartrisk/internal/telemetry"
)

var (
	listenAddr string

	stubAddr     string
	stubPositive float64
	stubFail     string
	stubValidate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local assessment web form",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a stand-in prediction service for local development",
	Long: `Run a stand-in prediction service for local development.

Examples:
  heartrisk stub --positive 0.7
  heartrisk stub --validate
  heartrisk stub --fail "Model unavailable"`,
	Args: cobra.NoArgs,
	RunE: runStub,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Address to listen on (default 127.0.0.1:8080)")

	stubCmd.Flags().StringVarP(&stubAddr, "listen", "l", "127.0.0.1:8000", "Address to listen on")
	stubCmd.Flags().Float64Var(&stubPositive, "positive", 0.5, "Positive probability to answer with")
	stubCmd.Flags().StringVar(&stubFail, "fail", "", "Answer every request with this service error")
	stubCmd.Flags().BoolVar(&stubValidate, "validate", false, "Reject out-of-range input like the real service")
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	if err := cfg.RequireEndpoint(); err != nil {
		logger.Warn("no prediction endpoint, submissions will fail", "error", err)
	}

	shutdownTracing, err := telemetry.Init(context.Background(), telemetry.FromConfig(cfg, version))
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := dashboard.NewHandler(dashboard.Options{
		Predictor:     predictor.NewClient(cfg.Endpoint, predictor.WithTimeout(cfg.Timeout)),
		Logger:        logger,
		Metrics:       metrics.New(reg),
		Gatherer:      reg,
		RateLimit:     cfg.RateLimit,
		RateBurst:     cfg.RateBurst,
		SubmitTimeout: cfg.Timeout,
		MaxSessions:   cfg.MaxSessions,
		SessionTTL:    cfg.SessionTTL,
	})
	defer handler.Close()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("serving assessment form", "addr", cfg.Listen, "endpoint", cfg.Endpoint)
	fmt.Fprintf(os.Stderr, "Assessment form: http://%s\n", cfg.Listen)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runStub(cmd *cobra.Command, args []string) error {
	if stubPositive < 0 || stubPositive > 1 {
		return fmt.Errorf("--positive must be between 0 and 1, got %g", stubPositive)
	}

	respond := stubserver.Fixed(stubPositive)
	switch {
	case stubFail != "":
		respond = stubserver.Failing(stubFail)
	case stubValidate:
		respond = stubserver.Validating(stubPositive)
	}

	srv, err := stubserver.Start(stubAddr, respond)
	if err != nil {
		return err
	}
	defer srv.Stop()

	fmt.Fprintf(os.Stderr, "Prediction stub: %s\n", srv.URL())
	fmt.Fprintf(os.Stderr, "  export HEARTRISK_ENDPOINT=%s\n", srv.URL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Fprintf(os.Stderr, "\nShutting down... (%d requests served)\n", srv.Requests())
	return nil
}
