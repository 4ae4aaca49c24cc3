package internal

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/biolink/internal/docstore"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	CORS   CORSConfig        `yaml:"cors"`
	Seed   SeedConfig        `yaml:"seed"`
	Events EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.CORS.Validate(); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from the deployment environment. The variable
// names match what hosting platforms and the old .env files provide.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("MONGO_URL"); ok && v != "" {
		c.Store.Mongo.URI = v
	}
	if v, ok := lookup("DB_NAME"); ok && v != "" {
		c.Store.Mongo.Database = v
	}
	if v, ok := lookup("STORE_DRIVER"); ok && v != "" {
		c.Store.Driver = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			port = 0 // fails validation
		}
		c.App.HTTP.Port = port
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel    slog.Level `yaml:"log_level"`
	HTTP        HTTPConfig `yaml:"http"`
	WatchConfig bool       `yaml:"watch_config"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ReadHeaderTimeout, validation.Required),
		validation.Field(&c.ShutdownTimeout, validation.Required),
	)
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Driver         string        `yaml:"driver"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Mongo          MongoConfig   `yaml:"mongo"`
	SQLite         SQLiteConfig  `yaml:"sqlite"`
}

// Validate validates the driver and the settings of the selected backend only.
func (c *StoreConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(docstore.DriverMongo, docstore.DriverSQLite)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case docstore.DriverMongo:
		return c.Mongo.Validate()
	default:
		return c.SQLite.Validate()
	}
}

// Options converts the config into docstore options.
func (c *StoreConfig) Options() docstore.Options {
	return docstore.Options{
		Driver:         c.Driver,
		MongoURI:       c.Mongo.URI,
		MongoDatabase:  c.Mongo.Database,
		SQLitePath:     c.SQLite.Path,
		ConnectTimeout: c.ConnectTimeout,
	}
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// Validate validates the MongoDB configuration.
func (c *MongoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URI, validation.Required),
		validation.Field(&c.Database, validation.Required),
	)
}

// SQLiteConfig holds the embedded store file location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CORSConfig controls cross-origin access from the bio front-end.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// Validate validates the CORS configuration.
func (c *CORSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AllowedOrigins, validation.Required),
	)
}

// SeedConfig controls default data creation at startup.
type SeedConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EventsConfig controls the live change stream.
type EventsConfig struct {
	PageThrottle time.Duration `yaml:"page_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PageThrottle, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:              8001,
				ReadHeaderTimeout: 5 * time.Second,
				ShutdownTimeout:   10 * time.Second,
			},
		},
		Store: StoreConfig{
			Driver:         docstore.DriverMongo,
			ConnectTimeout: 10 * time.Second,
			Mongo: MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "biolink",
			},
			SQLite: SQLiteConfig{
				Path: "./biolink.db",
			},
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: true,
		},
		Seed: SeedConfig{
			Enabled: true,
		},
		Events: EventsConfig{
			PageThrottle: time.Second,
		},
	}
}
