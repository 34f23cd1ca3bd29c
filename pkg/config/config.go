// Package config loads server settings from defaults, an optional YAML file,
// an optional .env file and the process environment, in increasing priority.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportQUIC  = "quic"
)

type Config struct {
	LibraryPath string     `yaml:"library_path"`
	DBFilename  string     `yaml:"db_filename"`
	ServerName  string     `yaml:"server_name"`
	Transport   string     `yaml:"transport"`
	HTTP        HTTPConfig `yaml:"http"`
	QUIC        QUICConfig `yaml:"quic"`
	Log         LogConfig  `yaml:"log"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type QUICConfig struct {
	Addr     string `yaml:"addr"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Error reports an unusable setting.
type Error struct {
	Setting string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Setting, e.Message)
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DBFilename: "metadata.db",
		ServerName: "Calibre MCP Server",
		Transport:  TransportStdio,
		HTTP:       HTTPConfig{Host: "0.0.0.0", Port: 9001},
		QUIC:       QUICConfig{Addr: ":9002"},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Loader reads configuration through an afero filesystem so tests can run in memory.
type Loader struct {
	FS     afero.Fs
	Lookup func(string) (string, bool)
}

// NewLoader reads from the OS filesystem and environment.
func NewLoader() *Loader {
	return &Loader{FS: afero.NewOsFs(), Lookup: os.LookupEnv}
}

// Load layers yamlPath and envPath over the defaults, then applies the
// environment. Missing files are skipped; sources lists the files used.
func (l *Loader) Load(yamlPath, envPath string) (cfg *Config, sources []string, err error) {
	cfg = Default()

	if yamlPath != "" {
		data, err := afero.ReadFile(l.FS, yamlPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, nil, fmt.Errorf("parse config %s: %w", yamlPath, err)
			}
			sources = append(sources, yamlPath)
		}
	}

	dotenv := map[string]string{}
	if envPath != "" {
		data, err := afero.ReadFile(l.FS, envPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, nil, fmt.Errorf("read env file: %w", err)
		default:
			dotenv, err = godotenv.Parse(bytes.NewReader(data))
			if err != nil {
				return nil, nil, fmt.Errorf("parse env file %s: %w", envPath, err)
			}
			sources = append(sources, envPath)
		}
	}

	// Real environment wins over .env.
	get := func(key string) (string, bool) {
		if l.Lookup != nil {
			if v, ok := l.Lookup(key); ok {
				return v, true
			}
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(cfg, get); err != nil {
		return nil, nil, err
	}
	return cfg, sources, nil
}

func applyEnv(cfg *Config, get func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"CALIBRE_LIBRARY_PATH", &cfg.LibraryPath},
		{"CALIBRE_DB_FILENAME", &cfg.DBFilename},
		{"MCP_SERVER_NAME", &cfg.ServerName},
		{"TRANSPORT_MODE", &cfg.Transport},
		{"HTTP_HOST", &cfg.HTTP.Host},
		{"QUIC_ADDR", &cfg.QUIC.Addr},
		{"QUIC_CERT_FILE", &cfg.QUIC.CertFile},
		{"QUIC_KEY_FILE", &cfg.QUIC.KeyFile},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
		{"LOG_FILE", &cfg.Log.File},
	}
	for _, s := range strs {
		if v, ok := get(s.key); ok {
			*s.dst = strings.TrimSpace(v)
		}
	}

	if v, ok := get("HTTP_PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &Error{Setting: "HTTP_PORT", Message: fmt.Sprintf("not a number: %q", v)}
		}
		cfg.HTTP.Port = port
	}
	return nil
}

// DBPath is the catalog file inside the library.
func (c *Config) DBPath() string {
	return filepath.Join(c.LibraryPath, c.DBFilename)
}

// HTTPAddr is host:port for the HTTP transport.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// Validate checks the settings that the server cannot start without.
func (c *Config) Validate(fsys afero.Fs) error {
	if c.LibraryPath == "" {
		return &Error{Setting: "CALIBRE_LIBRARY_PATH", Message: "not set"}
	}
	info, err := fsys.Stat(c.LibraryPath)
	if err != nil {
		return &Error{Setting: "CALIBRE_LIBRARY_PATH", Message: fmt.Sprintf("library not found: %s", c.LibraryPath)}
	}
	if !info.IsDir() {
		return &Error{Setting: "CALIBRE_LIBRARY_PATH", Message: fmt.Sprintf("not a directory: %s", c.LibraryPath)}
	}
	if c.DBFilename == "" {
		return &Error{Setting: "CALIBRE_DB_FILENAME", Message: "empty"}
	}
	if _, err := fsys.Stat(c.DBPath()); err != nil {
		return &Error{Setting: "CALIBRE_DB_FILENAME", Message: fmt.Sprintf("database file not found: %s", c.DBPath())}
	}

	switch strings.ToLower(c.Transport) {
	case TransportStdio, TransportHTTP, TransportQUIC:
		c.Transport = strings.ToLower(c.Transport)
	default:
		return &Error{Setting: "TRANSPORT_MODE", Message: fmt.Sprintf("unknown transport %q (want stdio, http or quic)", c.Transport)}
	}

	if c.Transport == TransportHTTP && (c.HTTP.Port < 1 || c.HTTP.Port > 65535) {
		return &Error{Setting: "HTTP_PORT", Message: fmt.Sprintf("out of range: %d", c.HTTP.Port)}
	}
	if c.Transport == TransportQUIC {
		if c.QUIC.Addr == "" {
			return &Error{Setting: "QUIC_ADDR", Message: "empty"}
		}
		if (c.QUIC.CertFile == "") != (c.QUIC.KeyFile == "") {
			return &Error{Setting: "QUIC_CERT_FILE", Message: "cert and key files must be set together"}
		}
	}
	return nil
}
