// Package main provides the quoting API server.
package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"printquote/api"
	"printquote/internal/configstore"
)

var version = "0.1.0"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg := api.DefaultConfig()
	if port := os.Getenv("PORT"); port != "" {
		if v, err := strconv.Atoi(port); err == nil {
			cfg.Port = v
		}
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = []byte(secret)
	} else {
		log.Warn().Msg("JWT_SECRET not set; staff and admin endpoints are disabled")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "data/config.json"
	}

	store := configstore.New(configPath).WithLogger(log.Logger)
	if err := store.EnsureDefault(configstore.DefaultSnapshot()); err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to initialize config store")
	}

	log.Info().
		Int("port", cfg.Port).
		Str("version", version).
		Str("config_path", configPath).
		Msg("Starting print quote API server")

	server := api.NewServer(store, cfg, log.Logger)
	if err := server.StartWithGracefulShutdown(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
