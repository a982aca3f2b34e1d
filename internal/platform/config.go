package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up in the data directory when no config file is given.
const ConfigFileName = "tabnotes.yaml"

// Environment variables read by Resolve.
const (
	EnvDataDir       = "TABNOTES_DATA_DIR"
	EnvConfig        = "TABNOTES_CONFIG"
	EnvRemote        = "TABNOTES_REMOTE"
	EnvUser          = "TABNOTES_USER"
	EnvRemoteTimeout = "TABNOTES_REMOTE_TIMEOUT"
)

// FileConfig is the on-disk YAML configuration.
type FileConfig struct {
	DataDir       string        `yaml:"data_dir"`
	Remote        string        `yaml:"remote"`
	User          string        `yaml:"user"`
	RemoteTimeout time.Duration `yaml:"remote_timeout"`
	LogLevel      string        `yaml:"log_level"`
}

// Config is the resolved configuration of a Workspace.
// Precedence: option, then environment, then config file, then default.
type Config struct {
	DataDir       string
	ConfigFile    string
	Remote        string
	User          string
	RemoteTimeout time.Duration
	LogLevel      slog.Level
}

// LoadConfigFile reads path. A missing file is reported as false, not as an error.
func LoadConfigFile(path string) (FileConfig, bool, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fc, false, nil
	}
	if err != nil {
		return fc, false, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, true, nil
}

// Resolve merges options, environment and config file into a Config.
func Resolve(opts ...Option) (Config, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return resolve(o)
}

func resolve(o *options) (Config, error) {
	cfg := Config{LogLevel: slog.LevelInfo}

	cfg.DataDir = first(o.dataDir, getenv(EnvDataDir, ""))
	dataDirFixed := cfg.DataDir != ""
	if !dataDirFixed {
		cfg.DataDir = DefaultDataDir()
	}

	cfg.ConfigFile = first(o.configFile, getenv(EnvConfig, ""), filepath.Join(cfg.DataDir, ConfigFileName))
	fc, _, err := LoadConfigFile(cfg.ConfigFile)
	if err != nil {
		return cfg, err
	}

	if !dataDirFixed && fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}

	if o.remoteURI != nil {
		cfg.Remote = *o.remoteURI
	} else {
		cfg.Remote = getenv(EnvRemote, fc.Remote)
	}
	cfg.User = first(o.user, getenv(EnvUser, ""), fc.User)

	cfg.RemoteTimeout = fc.RemoteTimeout
	if v := getenv(EnvRemoteTimeout, ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvRemoteTimeout, err)
		}
		cfg.RemoteTimeout = d
	}
	if o.remoteTimeout > 0 {
		cfg.RemoteTimeout = o.remoteTimeout
	}

	if fc.LogLevel != "" {
		level, err := ParseLevel(fc.LogLevel)
		if err != nil {
			return cfg, err
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// DefaultDataDir is the nearest .tabnotes directory above the working
// directory, else tabnotes under the user config directory.
func DefaultDataDir() string {
	if wd, err := os.Getwd(); err == nil {
		if root, err := FindRoot(wd); err == nil {
			return filepath.Join(root, DataDirName)
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tabnotes")
	}
	return DataDirName
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
