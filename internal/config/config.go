// Package config loads receptionist settings.
//
// Precedence, highest first: command-line flags, RECEPTIONIST_* environment
// variables, the config file, built-in defaults. Without an explicit path
// the file is looked up as receptionist.yaml in the working directory and
// then in the data directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HendryAvila/Receptionist/internal/logging"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file name searched for when no path is given.
const FileName = "receptionist.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RECEPTIONIST"

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Settings keys. Flags use the same names with hyphens.
const (
	KeyDataDir        = "data_dir"
	KeyBackend        = "backend"
	KeyDebounceWindow = "debounce_window"
	KeyWriteTimeout   = "write_timeout"
	KeyFinalTimeout   = "final_timeout"
	KeyIdentity       = "identity"
	KeyCatalogFile    = "catalog_file"
	KeyLogLevel       = "log_level"
)

var keys = []string{
	KeyDataDir, KeyBackend, KeyDebounceWindow, KeyWriteTimeout,
	KeyFinalTimeout, KeyIdentity, KeyCatalogFile, KeyLogLevel,
}

// Settings is the resolved configuration.
type Settings struct {
	DataDir        string        `mapstructure:"data_dir"`
	Backend        string        `mapstructure:"backend"`
	DebounceWindow time.Duration `mapstructure:"debounce_window"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	FinalTimeout   time.Duration `mapstructure:"final_timeout"`
	Identity       string        `mapstructure:"identity"`
	CatalogFile    string        `mapstructure:"catalog_file"`
	LogLevel       string        `mapstructure:"log_level"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// DefaultDataDir returns ~/.receptionist, or .receptionist when the home
// directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".receptionist"
	}
	return filepath.Join(home, ".receptionist")
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		DataDir:        DefaultDataDir(),
		Backend:        BackendSQLite,
		DebounceWindow: 1500 * time.Millisecond,
		WriteTimeout:   10 * time.Second,
		FinalTimeout:   15 * time.Second,
		LogLevel:       "info",
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyDataDir, d.DataDir)
	v.SetDefault(KeyBackend, d.Backend)
	v.SetDefault(KeyDebounceWindow, d.DebounceWindow)
	v.SetDefault(KeyWriteTimeout, d.WriteTimeout)
	v.SetDefault(KeyFinalTimeout, d.FinalTimeout)
	v.SetDefault(KeyIdentity, d.Identity)
	v.SetDefault(KeyCatalogFile, d.CatalogFile)
	v.SetDefault(KeyLogLevel, d.LogLevel)
}

// FlagName returns the command-line flag bound to key.
func FlagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

// Load resolves settings. path may be empty. flags may be nil; flags that
// share a name with a settings key override everything else when set.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range keys {
			if f := flags.Lookup(FlagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(v.GetString(KeyDataDir))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading %s: %w", FileName, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	s.File = v.ConfigFileUsed()
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.DataDir) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	switch s.Backend {
	case BackendSQLite, BackendFile:
	default:
		errs = append(errs, fmt.Errorf("backend %q: must be %s or %s", s.Backend, BackendSQLite, BackendFile))
	}
	if s.DebounceWindow <= 0 {
		errs = append(errs, fmt.Errorf("debounce_window must be positive, got %s", s.DebounceWindow))
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("write_timeout must be positive, got %s", s.WriteTimeout))
	}
	if s.FinalTimeout <= 0 {
		errs = append(errs, fmt.Errorf("final_timeout must be positive, got %s", s.FinalTimeout))
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid settings: %w", err)
	}
	return nil
}

// fileSettings is the on-disk shape written by WriteDefault.
type fileSettings struct {
	DataDir        string `yaml:"data_dir"`
	Backend        string `yaml:"backend"`
	DebounceWindow string `yaml:"debounce_window"`
	WriteTimeout   string `yaml:"write_timeout"`
	FinalTimeout   string `yaml:"final_timeout"`
	Identity       string `yaml:"identity"`
	CatalogFile    string `yaml:"catalog_file"`
	LogLevel       string `yaml:"log_level"`
}

// WriteDefault writes a starter config file holding the defaults. It
// refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s already exists", path)
		}
	}
	d := Defaults()
	data, err := yaml.Marshal(fileSettings{
		DataDir:        d.DataDir,
		Backend:        d.Backend,
		DebounceWindow: d.DebounceWindow.String(),
		WriteTimeout:   d.WriteTimeout.String(),
		FinalTimeout:   d.FinalTimeout.String(),
		Identity:       d.Identity,
		CatalogFile:    d.CatalogFile,
		LogLevel:       d.LogLevel,
	})
	if err != nil {
		return fmt.Errorf("config: encode defaults: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
