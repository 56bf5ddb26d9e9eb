package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// Config holds weft's serving defaults.
// Priority: command flags > env vars > settings.json > defaults; a
// project manifest sits between settings.json and env.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	DBPath     string `json:"db_path"`
	LogLevel   string `json:"log_level"`
	Autosave   string `json:"autosave"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr: ":4800",
		LogLevel:   "info",
	}
}

func weftDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".weft"
	}
	return filepath.Join(home, ".weft")
}

func settingsPath() string {
	return filepath.Join(weftDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("WEFT_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("WEFT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("WEFT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WEFT_AUTOSAVE"); v != "" {
		cfg.Autosave = v
	}

	return cfg
}

func (c Config) slogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
