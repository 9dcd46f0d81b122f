package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the yaml-backed service configuration. Environment variables
// override individual fields after the file is parsed.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Auth struct {
		Secret     string `yaml:"secret"`
		Issuer     string `yaml:"issuer"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"auth"`
	Game struct {
		TotalRounds      int `yaml:"total_rounds"`
		RoundDurationSec int `yaml:"round_duration_sec"`
	} `yaml:"game"`
	Scheduler struct {
		Workers   int `yaml:"workers"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"scheduler"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing file is fine, env and defaults cover everything.
	} else if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)
	applyEnvOverrides(&config)
	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "trivia"
	}
	if c.Auth.TTLMinutes == 0 {
		c.Auth.TTLMinutes = 720
	}
	if c.Game.TotalRounds == 0 {
		c.Game.TotalRounds = 5
	}
	if c.Game.RoundDurationSec == 0 {
		c.Game.RoundDurationSec = 30
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = 10
	}
	if c.Scheduler.QueueSize == 0 {
		c.Scheduler.QueueSize = 20
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
}

func applyEnvOverrides(c *Config) {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Auth.Secret = getEnv("AUTH_SECRET", c.Auth.Secret)
	c.Auth.Issuer = getEnv("AUTH_ISSUER", c.Auth.Issuer)
	c.Auth.TTLMinutes = getEnvAsInt("AUTH_TTL_MINUTES", c.Auth.TTLMinutes)
	c.Game.TotalRounds = getEnvAsInt("GAME_TOTAL_ROUNDS", c.Game.TotalRounds)
	c.Game.RoundDurationSec = getEnvAsInt("GAME_ROUND_DURATION_SEC", c.Game.RoundDurationSec)
	c.Scheduler.Workers = getEnvAsInt("SCHEDULER_WORKERS", c.Scheduler.Workers)
	c.Scheduler.QueueSize = getEnvAsInt("SCHEDULER_QUEUE_SIZE", c.Scheduler.QueueSize)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
}

// RoundDuration returns the configured per-round timer duration.
func (c *Config) RoundDuration() time.Duration {
	return time.Duration(c.Game.RoundDurationSec) * time.Second
}

// TokenTTL returns the configured credential lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TTLMinutes) * time.Minute
}
