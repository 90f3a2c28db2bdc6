package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "transcoding_db", cfg.Database.Database)
				assert.Equal(t, 5, cfg.Queue.MaxMessages)
				assert.Equal(t, 20*time.Second, cfg.Queue.WaitTime)
				assert.Equal(t, "raw-videos", cfg.Storage.UploadBucket)
				assert.Equal(t, "final-videos", cfg.Storage.OutputBucket)
				assert.Equal(t, "transcoding", cfg.Redis.Channel)
				assert.Equal(t, "transcoding-cluster", cfg.Launcher.Cluster)
				assert.Equal(t, "transcoding-api-service", cfg.App.Name)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "transcoding_db",
		},
		Queue: QueueConfig{
			URL:         "https://sqs.ap-south-1.amazonaws.com/000000000000/video-upload-events",
			MaxMessages: 5,
			WaitTime:    20 * time.Second,
		},
		Storage: StorageConfig{
			UploadBucket: "raw-videos",
			OutputBucket: "final-videos",
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "transcoding",
		},
		Launcher: LauncherConfig{
			Cluster:        "transcoding-cluster",
			TaskDefinition: "video-transcoder",
			ContainerName:  "transcoder",
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty upload bucket",
			mutate:    func(c *Config) { c.Storage.UploadBucket = "" },
			wantErr:   true,
			errString: "storage upload_bucket is required",
		},
		{
			name:      "empty output bucket",
			mutate:    func(c *Config) { c.Storage.OutputBucket = "" },
			wantErr:   true,
			errString: "storage output_bucket is required",
		},
		{
			name:      "empty redis addr",
			mutate:    func(c *Config) { c.Redis.Addr = "" },
			wantErr:   true,
			errString: "redis addr is required",
		},
		{
			name:      "empty redis channel",
			mutate:    func(c *Config) { c.Redis.Channel = "" },
			wantErr:   true,
			errString: "redis channel is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateDispatcherConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "empty queue url",
			mutate:    func(c *Config) { c.Queue.URL = "" },
			wantErr:   true,
			errString: "queue url is required",
		},
		{
			name:      "zero max messages",
			mutate:    func(c *Config) { c.Queue.MaxMessages = 0 },
			wantErr:   true,
			errString: "queue max_messages",
		},
		{
			name:      "max messages above batch limit",
			mutate:    func(c *Config) { c.Queue.MaxMessages = MaxQueueBatchSize + 1 },
			wantErr:   true,
			errString: "queue max_messages",
		},
		{
			name:      "zero wait time",
			mutate:    func(c *Config) { c.Queue.WaitTime = 0 },
			wantErr:   true,
			errString: "queue wait_time",
		},
		{
			name:      "empty launcher cluster",
			mutate:    func(c *Config) { c.Launcher.Cluster = "" },
			wantErr:   true,
			errString: "launcher cluster is required",
		},
		{
			name:      "empty task definition",
			mutate:    func(c *Config) { c.Launcher.TaskDefinition = "" },
			wantErr:   true,
			errString: "launcher task_definition is required",
		},
		{
			name:      "empty container name",
			mutate:    func(c *Config) { c.Launcher.ContainerName = "" },
			wantErr:   true,
			errString: "launcher container_name is required",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateDispatcherConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
