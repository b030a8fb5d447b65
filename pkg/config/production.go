package config

import (
	"os"
	"strconv"
)

func loadProductionConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.DatabaseFilePath = os.Getenv("DATABASE_FILE_PATH")
	if cfg.DatabaseFilePath == "" {
		cfg.DatabaseFilePath = "/data/syncdeck.sqlite"
	}
	cfg.PlatformAPIURL = os.Getenv("PLATFORM_API_URL")
	cfg.PlatformSecret = os.Getenv("PLATFORM_SECRET")
	cfg.ServerHost = "0.0.0.0"
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
}
