package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// MaxQueueBatchSize is the largest receive batch the queue service accepts
	MaxQueueBatchSize = 10
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Queue      QueueConfig      `yaml:"queue"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Launcher   LauncherConfig   `yaml:"launcher"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Logging    LoggingConfig    `yaml:"logging"`
	App        AppConfig        `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigin      string        `yaml:"cors_origin"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// QueueConfig holds the upload-notification queue configuration
type QueueConfig struct {
	URL             string        `yaml:"url"`
	Region          string        `yaml:"region"`
	MaxMessages     int           `yaml:"max_messages"`
	WaitTime        time.Duration `yaml:"wait_time"`
	ErrorBackoff    time.Duration `yaml:"error_backoff"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Region            string        `yaml:"region"`
	Endpoint          string        `yaml:"endpoint"`
	UploadBucket      string        `yaml:"upload_bucket"`
	OutputBucket      string        `yaml:"output_bucket"`
	AccessKeyID       string        `yaml:"access_key_id"`
	SecretAccessKey   string        `yaml:"secret_access_key"`
	UploadURLExpiry   time.Duration `yaml:"upload_url_expiry"`
	DownloadURLExpiry time.Duration `yaml:"download_url_expiry"`
}

// RedisConfig holds the event relay connection configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// LauncherConfig holds the transcoding task launcher configuration
type LauncherConfig struct {
	Cluster        string   `yaml:"cluster"`
	TaskDefinition string   `yaml:"task_definition"`
	ContainerName  string   `yaml:"container_name"`
	Subnets        []string `yaml:"subnets"`
	SecurityGroups []string `yaml:"security_groups"`
	AssignPublicIP bool     `yaml:"assign_public_ip"`
	RedisURL       string   `yaml:"redis_url"`
}

// DispatcherConfig holds dispatcher poll loop settings
type DispatcherConfig struct {
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// ValidateAPIConfig checks the configuration the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}

	if c.Redis.Channel == "" {
		return fmt.Errorf("redis channel is required")
	}

	return nil
}

// ValidateDispatcherConfig checks the configuration the dispatcher needs
func (c *Config) ValidateDispatcherConfig() error {
	if c.Queue.URL == "" {
		return fmt.Errorf("queue url is required")
	}

	if c.Queue.MaxMessages <= 0 || c.Queue.MaxMessages > MaxQueueBatchSize {
		return fmt.Errorf("queue max_messages must be between 1 and %d", MaxQueueBatchSize)
	}

	if c.Queue.WaitTime <= 0 {
		return fmt.Errorf("queue wait_time must be greater than 0")
	}

	if c.Launcher.Cluster == "" {
		return fmt.Errorf("launcher cluster is required")
	}

	if c.Launcher.TaskDefinition == "" {
		return fmt.Errorf("launcher task_definition is required")
	}

	if c.Launcher.ContainerName == "" {
		return fmt.Errorf("launcher container_name is required")
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	return c.validateStorage()
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.UploadBucket == "" {
		return fmt.Errorf("storage upload_bucket is required")
	}

	if c.Storage.OutputBucket == "" {
		return fmt.Errorf("storage output_bucket is required")
	}

	return nil
}
