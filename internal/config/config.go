package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the server reads from the environment. A .env file is
// honored when present.
type Config struct {
	Addr          string
	StoragePath   string
	CoachismsPath string
	Location      *time.Location
	TickInterval  time.Duration
	ClaimWindow   time.Duration
	PingEveryone  bool

	LineupChannel   string
	GeneralChannel  string
	CoachLogChannel string
}

func Load() (*Config, error) {
	_ = godotenv.Load() // optional

	cfg := &Config{
		Addr:            getenv("CHEL_ADDR", ":8080"),
		StoragePath:     getenv("CHEL_STORAGE", "storage.json"),
		CoachismsPath:   getenv("CHEL_COACHISMS", "data/coachisms.txt"),
		TickInterval:    getdur("CHEL_TICK_SECONDS", 60),
		ClaimWindow:     getdur("CHEL_CLAIM_WINDOW_SECONDS", 300),
		PingEveryone:    getenv("CHEL_PING_EVERYONE", "true") == "true",
		LineupChannel:   getenv("CHEL_LINEUP_CHANNEL", "lineup"),
		GeneralChannel:  getenv("CHEL_GENERAL_CHANNEL", "general"),
		CoachLogChannel: getenv("CHEL_COACH_LOG_CHANNEL", "coach-log"),
	}

	tz := getenv("CHEL_TIMEZONE", "America/Toronto")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("bad timezone %q: %w", tz, err)
	}
	cfg.Location = loc
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getdur(key string, fallbackSecs int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallbackSecs) * time.Second
}
