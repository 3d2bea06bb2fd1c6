// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config carries every knob the CLI and pipeline need. Values come from the
// environment; a .env file in the working directory is merged in first when
// present.
type Config struct {
	// Text generation.
	GenerationBaseURL string
	GenerationModel   string
	GenerationKey     string
	GenerationTimeout time.Duration

	// Synthesis provider credentials.
	Provider      string
	OpenAIKey     string
	ElevenLabsKey string
	AWSRegion     string
	GCPLanguage   string

	// Per-segment synthesis deadline.
	SegmentTimeout time.Duration
}

// Load reads configuration from the environment. A missing .env file is
// normal and only logged at debug level.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	return Config{
		GenerationBaseURL: getEnv("FABLECAST_GENERATION_URL", "https://api.openai.com/v1"),
		GenerationModel:   getEnv("FABLECAST_GENERATION_MODEL", "gpt-4o-mini"),
		GenerationKey:     getEnv("FABLECAST_GENERATION_KEY", os.Getenv("OPENAI_API_KEY")),
		GenerationTimeout: getEnvDuration("FABLECAST_GENERATION_TIMEOUT", 90*time.Second),

		Provider:      getEnv("FABLECAST_PROVIDER", "openai"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		ElevenLabsKey: os.Getenv("ELEVENLABS_API_KEY"),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		GCPLanguage:   getEnv("FABLECAST_GCP_LANGUAGE", "en-US"),

		SegmentTimeout: getEnvDuration("FABLECAST_SEGMENT_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", v).Msg("unparseable duration, using default")
	return fallback
}
