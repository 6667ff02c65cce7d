package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the POS service
type Config struct {
	Database   DatabaseConfig   `yaml:"database" envPrefix:"DATABASE_"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
	Kafka      KafkaConfig      `yaml:"kafka" envPrefix:"KAFKA_"`
	Events     EventsConfig     `yaml:"events" envPrefix:"EVENTS_"`
	HTTP       HTTPConfig       `yaml:"http" envPrefix:"HTTP_"`
	Catalog    CatalogConfig    `yaml:"catalog" envPrefix:"CATALOG_"`
	Restaurant RestaurantConfig `yaml:"restaurant" envPrefix:"RESTAURANT_"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Database string `yaml:"database" env:"NAME"`
	MaxConns int32  `yaml:"max_conns" env:"MAX_CONNS"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Exchange string `yaml:"exchange" env:"EXCHANGE"`
	Queue    string `yaml:"queue" env:"QUEUE"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"BROKERS"`
	Topic   string   `yaml:"topic" env:"TOPIC"`
}

// EventsConfig selects where domain events are delivered after commit.
type EventsConfig struct {
	Sinks  []string `yaml:"sinks" env:"SINKS"`
	Buffer int      `yaml:"buffer" env:"BUFFER"`
}

type HTTPConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

type CatalogConfig struct {
	Source string `yaml:"source" env:"SOURCE"`
	File   string `yaml:"file" env:"FILE"`
}

type RestaurantConfig struct {
	Timezone       string `yaml:"timezone" env:"TIMEZONE"`
	DefaultStation string `yaml:"default_station" env:"DEFAULT_STATION"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
}

const envPrefix = "POS_"

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "pos",
			Password: "pos",
			Database: "restaurant_pos",
			MaxConns: 25,
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			Exchange: "pos_events",
			Queue:    "notifications_queue",
		},
		Kafka: KafkaConfig{
			Topic: "pos.events",
		},
		Events: EventsConfig{
			Sinks:  []string{"log"},
			Buffer: 256,
		},
		HTTP: HTTPConfig{Port: 3000},
		Catalog: CatalogConfig{
			Source: "postgres",
		},
		Restaurant: RestaurantConfig{
			Timezone:       "UTC",
			DefaultStation: "KITCHEN",
		},
	}
}

// Load reads configuration from a YAML file, then applies .env and POS_* environment overrides.
// An empty filename skips the file and starts from defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// .env is optional; missing file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv applies POS_ prefixed environment variables onto target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks that the selected drivers have what they need.
func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Database == "" {
			problems = append(problems, "database.host and database.database are required for postgres")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown database.driver %q", c.Database.Driver))
	}

	switch c.Catalog.Source {
	case "postgres":
		if c.Database.Driver != "postgres" {
			problems = append(problems, "catalog.source postgres requires database.driver postgres")
		}
	case "file":
		if c.Catalog.File == "" {
			problems = append(problems, "catalog.file is required when catalog.source is file")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown catalog.source %q", c.Catalog.Source))
	}

	for _, sink := range c.Events.Sinks {
		switch sink {
		case "log", "rabbitmq":
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				problems = append(problems, "kafka.brokers is required for the kafka sink")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown events sink %q", sink))
		}
	}

	if c.HTTP.Port <= 0 {
		problems = append(problems, "http.port must be positive")
	}

	if _, err := time.LoadLocation(c.Restaurant.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid restaurant.timezone %q", c.Restaurant.Timezone))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the restaurant's local time zone used for promotion windows and ticket days.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Restaurant.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// HasSink reports whether the named event sink is enabled.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Events.Sinks {
		if s == name {
			return true
		}
	}
	return false
}
