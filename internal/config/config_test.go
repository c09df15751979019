package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hbnb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.IsTest())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, `
storage: db
env: test
db:
  driver: sqlite3
  dsn: /tmp/hbnb-test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorageDB, cfg.Storage)
	assert.Equal(t, "/tmp/hbnb-test.db", cfg.DB.DSN)
	assert.Equal(t, "file.json", cfg.File.Path, "unset keys keep their defaults")
	assert.True(t, cfg.IsTest())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "storage: file\nfile:\n  path: a.json\n")
	t.Setenv("HBNB_FILE_PATH", "b.json")
	t.Setenv("HBNB_TYPE_STORAGE", "file")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "b.json", cfg.File.Path)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "storage: file\ncolour: blue\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "postgres", mutate: func(c *Config) {
			c.Storage = StorageDB
			c.DB = DBConfig{Driver: "postgres", DSN: "postgres://hbnb@localhost/hbnb"}
		}},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage = "memory" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.DB.Driver = "mysql" }, wantErr: true},
		{name: "empty file path", mutate: func(c *Config) { c.File.Path = "" }, wantErr: true},
		{name: "empty dsn with db storage", mutate: func(c *Config) {
			c.Storage = StorageDB
			c.DB.DSN = ""
		}, wantErr: true},
		{name: "empty dsn with file storage", mutate: func(c *Config) { c.DB.DSN = "" }},
		{name: "unknown env", mutate: func(c *Config) { c.Env = "prod" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
