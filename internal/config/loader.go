package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileSystem is an abstraction for reading configuration files.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Load reads a TOML or YAML file on top of Default. A missing file is not
// an error. The result is validated.
func Load(path string) (Config, error) {
	return LoadFS(OSFS{}, path)
}

// LoadFS is Load with a custom file system.
func LoadFS(fsys FileSystem, path string) (Config, error) {
	cfg := Default()

	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := decode(path, data, &cfg); err != nil {
		return Default(), err
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// decode picks the format from the file extension.
func decode(path string, data []byte, cfg *Config) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q for %s", ext, path)
	}
	if err != nil {
		return &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return nil
}

// FromEnv overlays EnvPrefix-prefixed environment variables onto cfg.
// Unset variables leave fields untouched.
func FromEnv(cfg *Config) error {
	return FromEnvPrefix(EnvPrefix, cfg)
}

// FromEnvPrefix is FromEnv with a custom prefix.
func FromEnvPrefix(prefix string, cfg *Config) error {
	if err := envconfig.Process(prefix, cfg); err != nil {
		return fmt.Errorf("reading %s_* environment: %w", prefix, err)
	}
	return cfg.Validate()
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
