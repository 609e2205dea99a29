package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"mapengine.pawmap.org/internal/app"
	"mapengine.pawmap.org/internal/config"
	"mapengine.pawmap.org/internal/models"
	"mapengine.pawmap.org/internal/report"
)

const version = "1.0.0"

func main() {
	var (
		port = flag.Int("port", 4000, "API server port")
		env  = flag.String("env", "development", "Environment (development|staging|production)")

		configFile = flag.String("config-file", "", "Path to a local JSON or YAML configuration file")
		configURL  = flag.String("config-url", "", "URL to a remote JSON configuration file")
	)

	flag.Parse()

	configAuthUser := os.Getenv("CONFIG_AUTH_USER")
	configAuthPass := os.Getenv("CONFIG_AUTH_PASS")

	if err := config.ValidateConfigFlags(configFile, configURL); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	report.Setup()
	defer report.Flush()
	report.ConfigureScope(*env, version)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	client := app.NewPooledClient()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := loadSettings(ctx, client, *configFile, *configURL, configAuthUser, configAuthPass)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(settings); err != nil {
		fmt.Printf("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := config.NewConfig(*port, *env, settings)

	application, err := app.New(cfg, logger, client, version)
	if err != nil {
		logger.Error("Failed to wire application", "error", err)
		os.Exit(1)
	}
	defer application.ViewModel.Close()

	application.StartRefreshLoop(ctx)

	// If a remote URL is specified, refresh the configuration every minute.
	if *configURL != "" {
		go application.ConfigService.RefreshConfig(ctx, *configURL, configAuthUser, configAuthPass, time.Minute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env)
	err = srv.ListenAndServe()
	if err == http.ErrServerClosed {
		logger.Info("server stopped")
		return
	}
	report.ReportError(err, sentry.LevelFatal)
	report.Flush()
	logger.Error(err.Error())
	os.Exit(1)
}

func loadSettings(ctx context.Context, client *http.Client, configFile, configURL, authUser, authPass string) (models.EngineSettings, error) {
	if configFile != "" {
		return config.LoadConfigFromFile(configFile)
	}
	return config.LoadConfigFromURL(ctx, client, configURL, authUser, authPass)
}
