package config

import "time"

func loadTestConfig(cfg *Config) {
	cfg.DatabaseFilePath = ":memory:"
	cfg.PlatformAPIURL = "http://localhost:0"
	cfg.PlatformSecret = "test-platform-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.SessionSecret = "test-session-secret"
	cfg.WorkerPollInterval = 50 * time.Millisecond
}
