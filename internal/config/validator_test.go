package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeoutSeconds = 10
	cfg.Server.WriteTimeoutSeconds = 10
	cfg.Broker.Type = "kafka"
	cfg.Broker.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Broker.Kafka.GroupID = "alerting-service"
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Postgres.Port = 5432
	cfg.Database.Postgres.User = "argus"
	cfg.Database.Postgres.DBName = "argus"
	cfg.Dedup.Backend = "postgres"
	cfg.Dedup.OnStoreError = "allow"
	return cfg
}

func TestValidateStatic(t *testing.T) {
	assert.NoError(t, ValidateStatic(validConfig()))
}

func TestValidateStaticRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeoutSeconds = 0 }},
		{"missing broker type", func(c *Config) { c.Broker.Type = "" }},
		{"unsupported broker type", func(c *Config) { c.Broker.Type = "rabbitmq" }},
		{"no kafka brokers", func(c *Config) { c.Broker.Kafka.Brokers = nil }},
		{"empty broker address", func(c *Config) { c.Broker.Kafka.Brokers = []string{""} }},
		{"missing group id", func(c *Config) { c.Broker.Kafka.GroupID = "" }},
		{"postgres without user", func(c *Config) { c.Database.Postgres.User = "" }},
		{"postgres bad sslmode", func(c *Config) { c.Database.Postgres.SSLMode = "sometimes" }},
		{"unknown dedup backend", func(c *Config) { c.Dedup.Backend = "memcached" }},
		{"unknown fallback policy", func(c *Config) { c.Dedup.OnStoreError = "panic" }},
		{"negative sweep interval", func(c *Config) { c.Dedup.SweepSeconds = -1 }},
		{"bands not ascending", func(c *Config) {
			c.Risk.DefaultBands.MediumFloor = 80
			c.Risk.DefaultBands.HighFloor = 60
			c.Risk.DefaultBands.CriticalFloor = 90
		}},
		{"critical floor above max", func(c *Config) {
			c.Risk.DefaultBands.MediumFloor = 50
			c.Risk.DefaultBands.HighFloor = 75
			c.Risk.DefaultBands.CriticalFloor = 120
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateStatic(cfg))
		})
	}
}

func TestValidateStaticOptionalSections(t *testing.T) {
	// Redis and the default bands are optional; leaving them zeroed must
	// not fail validation.
	cfg := validConfig()
	cfg.Database.Redis.Host = ""
	cfg.Risk = RiskConfig{}
	assert.NoError(t, ValidateStatic(cfg))

	// Configured bands that are valid pass.
	cfg.Risk.DefaultBands.MediumFloor = 40
	cfg.Risk.DefaultBands.HighFloor = 70
	cfg.Risk.DefaultBands.CriticalFloor = 90
	assert.NoError(t, ValidateStatic(cfg))
}
