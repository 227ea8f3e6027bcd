package main

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	Port            int
	LogLevel        string
	LogFormat       string
	NoBrowser       bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("NENGOVIZ_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: NENGOVIZ_CONFIG)")

	flag.IntVar(&cfg.Port, "port",
		getEnvInt("NENGOVIZ_PORT", 0),
		"Listen port, 0 to use the config file value (env: NENGOVIZ_PORT)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("NENGOVIZ_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: NENGOVIZ_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("NENGOVIZ_LOG_FORMAT", ""),
		"Log format: json, text (env: NENGOVIZ_LOG_FORMAT)")

	flag.BoolVar(&cfg.NoBrowser, "no-browser",
		getEnvBool("NENGOVIZ_NO_BROWSER", false),
		"Do not open the local browser on startup (env: NENGOVIZ_NO_BROWSER)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("NENGOVIZ_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: NENGOVIZ_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Parse()
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
