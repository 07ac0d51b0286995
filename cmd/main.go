package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pump_control/internal/device"
	"pump_control/internal/handlers"
	"pump_control/internal/logger"
	"pump_control/internal/notify"
	"pump_control/internal/repository"
	"pump_control/internal/repository/db"
	"pump_control/internal/server"
	"pump_control/internal/service"

	"github.com/spf13/viper"
)

const defaultPollInterval = 5 * time.Second

// @title           Pump Control API
// @version         1.0
// @description     Irrigation pump control and scheduling service.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config.yml first; the log level comes from it
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	// open local store
	store, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(store)
	dev := device.New(device.Config{
		BaseURL:        viper.GetString("device.base_url"),
		Timeout:        viper.GetDuration("device.timeout"),
		BreakerFails:   uint32(viper.GetUint("device.breaker_fails")),
		BreakerOpenFor: viper.GetDuration("device.breaker_open_for"),
		PushRetries:    viper.GetUint64("device.push_retries"),
	})
	notifier := notify.NewClient(
		viper.GetString("slack.token"),
		viper.GetString("slack.channel"),
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := service.NewService(ctx, service.Deps{
		Repos:            repos,
		Device:           dev,
		Notifier:         notifier,
		Log:              log,
		FailureThreshold: viper.GetInt("poll.failure_threshold"),
	})
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}
	apiHandler := handlers.NewHandler(services, log)

	// start status reconciliation
	go services.Poller.Run(ctx, pollInterval())

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(cancel, srv, services, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the local SQLite store using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "pump.db")
		dbPath = "pump.db"
	}
	return db.InitDB(dbPath)
}

func pollInterval() time.Duration {
	if d := viper.GetDuration("poll.interval"); d > 0 {
		return d
	}
	return defaultPollInterval
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		origins := viper.GetStringSlice("cors.allowed_origins")
		if err := srv.Run(port, origins, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the poller and any pending background work
	cancel()
	if d, ok := services.Pump.(interface{ Shutdown() }); ok {
		d.Shutdown()
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
