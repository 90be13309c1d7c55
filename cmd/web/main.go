// Command web serves a JSON API on top of the Spotify Metadata client.
// Configuration is provided via environment variables, optionally loaded
// from a .env file in the working directory. Every upstream query is written
// to a SQLite journal and Prometheus metrics are exposed on /metrics.

package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"Spotify-Metadata-Go/pkg/db"
	"Spotify-Metadata-Go/pkg/handlers"
	"Spotify-Metadata-Go/pkg/spotify"
)

// config holds the settings read from the environment.
type config struct {
	ResponseFormat string
	BaseURL        string
	Timeout        time.Duration
	DatabasePath   string
	ListenAddr     string
	LogLevel       log.Level
}

// loadConfig reads the environment, applying defaults for unset values.
func loadConfig() (config, error) {
	cfg := config{
		ResponseFormat: getEnv("SPOTIFY_RESPONSE_FORMAT", string(spotify.DefaultFormat)),
		BaseURL:        getEnv("SPOTIFY_BASE_URL", spotify.BaseURL),
		DatabasePath:   getEnv("DATABASE_PATH", "spotifymeta.db"),
		ListenAddr:     getEnv("LISTEN_ADDR", ":4000"),
	}
	timeout, err := time.ParseDuration(getEnv("SPOTIFY_TIMEOUT", "10s"))
	if err != nil {
		return cfg, err
	}
	cfg.Timeout = timeout
	level, err := log.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return cfg, err
	}
	cfg.LogLevel = level
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// Load .env file if present (for local dev)
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New()
	logger.SetLevel(cfg.LogLevel)
	logger.SetFormatter(&log.JSONFormatter{})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// The journal records every query sent upstream.
	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("db init: %v", err)
	}
	defer database.Close()

	client, err := spotify.New(cfg.ResponseFormat,
		spotify.WithBaseURL(cfg.BaseURL),
		spotify.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		spotify.WithLogger(logger),
		spotify.WithMetrics(spotify.NewMetrics(reg)),
		spotify.WithRecorder(database),
	)
	if err != nil {
		logger.Fatalf("spotify client init: %v", err)
	}

	app := &handlers.Application{Metadata: client, Journal: database, Log: logger}

	logger.WithFields(log.Fields{
		"addr":   cfg.ListenAddr,
		"format": client.Config().Format,
		"base":   cfg.BaseURL,
	}).Info("starting server")
	if err := http.ListenAndServe(cfg.ListenAddr, handlers.NewRouter(app, reg)); err != nil {
		logger.Fatalf("http server error: %v", err)
	}
}
