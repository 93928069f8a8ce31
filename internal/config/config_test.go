package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, StorageLocal, cfg.Storage.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Lark.Enabled)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: memory
storage:
  driver: s3
  bucket: claims
lark:
  enabled: true
  chat_id: oc_finance
`)
	t.Setenv("CLAIMFLOW_SERVER_PORT", "9191")
	t.Setenv("LARK_APP_ID", "cli_a1")
	t.Setenv("LARK_APP_SECRET", "secret")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "claims", cfg.Storage.Bucket)
	assert.Equal(t, "AKIA", cfg.Storage.AccessKeyID)
	assert.Equal(t, "cli_a1", cfg.Lark.AppID)
	assert.Equal(t, "oc_finance", cfg.Lark.ChatID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: DriverSQLite, Path: "x.db"},
			Storage:  StorageConfig{Driver: StorageLocal, BaseDir: "data"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown database driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "ftp" }},
		{"local without base dir", func(c *Config) { c.Storage.BaseDir = "" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Driver = StorageS3; c.Storage.Region = "us-east-1" }},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true }},
		{"lark without credentials", func(c *Config) { c.Lark = LarkConfig{Enabled: true, ChatID: "oc"} }},
		{"lark without chat", func(c *Config) { c.Lark = LarkConfig{Enabled: true, AppID: "a", AppSecret: "b"} }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
