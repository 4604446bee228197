// Package config loads the distributor process's configuration from
// flags, with environment variables overriding flag defaults: bind
// address, admin HTTP address, pool high-water mark, endpoint storage
// path, and log level/format.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds the distributor process's full runtime configuration.
type Config struct {
	BindAddr      string
	AdminAddr     string
	LogLevel      string
	LogFormat     string
	EndpointDB    string
	HighWaterMark   int
	DialogTTL       time.Duration
	TxTTL           time.Duration
	SweepInterval   time.Duration
	QualifyInterval time.Duration
}

// Load parses flags, applies environment variable overrides, and
// returns the assembled configuration.
func Load() *Config {
	cfg := &Config{
		DialogTTL:       12 * time.Hour,
		TxTTL:           32 * time.Second,
		SweepInterval:   30 * time.Second,
		QualifyInterval: 30 * time.Second,
	}

	flag.StringVar(&cfg.BindAddr, "bind", "0.0.0.0:5060", "SIP bind address")
	flag.StringVar(&cfg.AdminAddr, "admin", "127.0.0.1:8080", "admin HTTP bind address")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "logformat", "text", "log format (text, json)")
	flag.StringVar(&cfg.EndpointDB, "endpoint-db", "", "path to the endpoint/sorcery sqlite database (empty disables persistence)")
	flag.IntVar(&cfg.HighWaterMark, "high-water-mark", 64, "serializer queue depth that trips the overload signal")
	flag.DurationVar(&cfg.QualifyInterval, "qualify-interval", cfg.QualifyInterval, "how often to OPTIONS-ping endpoints that have a known contact address")

	flag.Parse()

	if v := os.Getenv("DISTRIBUTOR_BIND"); v != "" {
		cfg.BindAddr = v
	}
	if v := os.Getenv("DISTRIBUTOR_ADMIN_ADDR"); v != "" {
		cfg.AdminAddr = v
	}
	if v := os.Getenv("DISTRIBUTOR_LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DISTRIBUTOR_LOGFORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("DISTRIBUTOR_ENDPOINT_DB"); v != "" {
		cfg.EndpointDB = v
	}
	if v := os.Getenv("DISTRIBUTOR_HIGH_WATER_MARK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HighWaterMark = n
		}
	}
	if v := os.Getenv("DISTRIBUTOR_QUALIFY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.QualifyInterval = d
		}
	}

	return cfg
}
