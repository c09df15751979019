// Package config loads engine configuration from an optional YAML file and
// HBNB_* environment variables, then checks it against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Storage backend names.
const (
	StorageFile = "file"
	StorageDB   = "db"
)

// Config selects and parameterizes the storage backend. The backend choice
// is fixed for the life of the process.
type Config struct {
	Storage string     `yaml:"storage" json:"storage" env:"HBNB_TYPE_STORAGE"`
	Env     string     `yaml:"env" json:"env" env:"HBNB_ENV"`
	File    FileConfig `yaml:"file" json:"file"`
	DB      DBConfig   `yaml:"db" json:"db"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	Path string `yaml:"path" json:"path" env:"HBNB_FILE_PATH"`
}

// DBConfig configures the database backend.
type DBConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver string `yaml:"driver" json:"driver" env:"HBNB_DB_DRIVER"`
	// DSN is a file path for sqlite3, a connection string for postgres.
	DSN string `yaml:"dsn" json:"dsn" env:"HBNB_DB_DSN"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Storage: StorageFile,
		Env:     "dev",
		File:    FileConfig{Path: "file.json"},
		DB:      DBConfig{Driver: "sqlite3", DSN: "hbnb.db"},
	}
}

// IsTest reports whether the engine runs against throwaway state.
func (c Config) IsTest() bool {
	return c.Env == "test"
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then environment variables. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate unifies the configuration with the #Config schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
