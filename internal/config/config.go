// Package config holds ctb settings. Values come from an optional YAML file,
// then environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zheng/ctb/internal/trace"
)

// Config is the full ctb configuration.
type Config struct {
	Trace  TraceConfig  `yaml:"trace"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Neo4j  Neo4jConfig  `yaml:"neo4j"`
}

// TraceConfig selects the trace file and how it is parsed.
type TraceConfig struct {
	File string `yaml:"file"`
	// EntryLevel is the indentation level of entry lines; -1 detects it.
	EntryLevel  int  `yaml:"entry_level"`
	StrictEntry bool `yaml:"strict_entry"`
}

// ServerConfig configures the HTTP server and file watching.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Watch        bool          `yaml:"watch"`
	Debounce     time.Duration `yaml:"debounce"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Neo4jConfig is used by the neo4j exporter.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Trace: TraceConfig{
			EntryLevel: trace.AutoEntryLevel,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:5000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			Debounce:     500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"CTB_FILE":           &c.Trace.File,
		"CTB_ADDR":           &c.Server.Addr,
		"CTB_LOG_LEVEL":      &c.Log.Level,
		"CTB_LOG_FORMAT":     &c.Log.Format,
		"CTB_NEO4J_URI":      &c.Neo4j.URI,
		"CTB_NEO4J_USER":     &c.Neo4j.User,
		"CTB_NEO4J_PASSWORD": &c.Neo4j.Password,
		"CTB_NEO4J_DATABASE": &c.Neo4j.Database,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("CTB_ENTRY_LEVEL"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CTB_ENTRY_LEVEL: %w", err)
		}
		c.Trace.EntryLevel = n
	}
	if v, ok := lookup("CTB_STRICT_ENTRY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CTB_STRICT_ENTRY: %w", err)
		}
		c.Trace.StrictEntry = b
	}
	return nil
}

// Validate checks settings that every command relies on.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Trace.EntryLevel < trace.AutoEntryLevel {
		return fmt.Errorf("invalid entry level %d", c.Trace.EntryLevel)
	}
	if c.Server.Debounce < 0 {
		return fmt.Errorf("invalid debounce %s", c.Server.Debounce)
	}
	return nil
}

// RequireTrace reports an error when no trace file is configured.
func (c *Config) RequireTrace() error {
	if strings.TrimSpace(c.Trace.File) == "" {
		return errors.New("no trace file: pass --file or set CTB_FILE")
	}
	return nil
}
