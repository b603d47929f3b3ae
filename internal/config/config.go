package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"apiKey"`
	} `yaml:"server"`

	Dirs struct {
		Data   string `yaml:"data"`
		Output string `yaml:"output"`
	} `yaml:"dirs"`

	Source struct {
		Workbook string `yaml:"workbook"`
	} `yaml:"source"`

	Analysis struct {
		BatchSize   int    `yaml:"batchSize"`
		Environment string `yaml:"environment"`
	} `yaml:"analysis"`

	Scheduler struct {
		IntervalMinutes int `yaml:"intervalMinutes"`
		DurationMinutes int `yaml:"durationMinutes"`
	} `yaml:"scheduler"`

	Database struct {
		Driver   string `yaml:"driver"` // "mysql", "postgres" or empty
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Log struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Agents credentials come from the environment only, never the file.
	Agents AgentsConfig `yaml:"-"`
}

// AgentsConfig holds the remote analysis service credentials.
type AgentsConfig struct {
	Endpoint   string
	Deployment string
	APIKey     string
}

// Load baca file config.yaml, terus apply defaults dan env overrides
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Dirs.Data == "" {
		cfg.Dirs.Data = "data/input"
	}
	if cfg.Dirs.Output == "" {
		cfg.Dirs.Output = "data/output"
	}
	if cfg.Source.Workbook == "" {
		cfg.Source.Workbook = "Environment_Segregation_Register.xlsx"
	}
	if cfg.Analysis.BatchSize == 0 {
		cfg.Analysis.BatchSize = 10
	}
	if cfg.Analysis.Environment == "" {
		cfg.Analysis.Environment = "Development"
	}
	if cfg.Scheduler.IntervalMinutes == 0 {
		cfg.Scheduler.IntervalMinutes = 5
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "envsegd.log"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "INFO"
	}

	cfg.Agents = AgentsConfig{
		Endpoint:   os.Getenv("PROJECT_ENDPOINT"),
		Deployment: os.Getenv("AGENT_MODEL_DEPLOYMENT_NAME"),
		APIKey:     os.Getenv("AZURE_API_KEY"),
	}
	return &cfg, nil
}

// ValidateAgents fails fast when the remote service credentials are
// missing; there is no retry for configuration errors.
func (c *Config) ValidateAgents() error {
	var missing []string
	if c.Agents.Endpoint == "" {
		missing = append(missing, "PROJECT_ENDPOINT")
	}
	if c.Agents.Deployment == "" {
		missing = append(missing, "AGENT_MODEL_DEPLOYMENT_NAME")
	}
	if c.Agents.APIKey == "" {
		missing = append(missing, "AZURE_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Interval helper
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Scheduler.IntervalMinutes) * time.Minute
}

// Duration helper; zero berarti jalan terus
func (c *Config) Duration() time.Duration {
	return time.Duration(c.Scheduler.DurationMinutes) * time.Minute
}

// MySQLDSN builds the DSN for the mysql driver
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the DSN for lib/pq
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}

// LogLevel parses the configured level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
