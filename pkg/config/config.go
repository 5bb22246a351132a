package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables (e.g., TERIO_PORT=9090)
const EnvPrefix = "TERIO_"

// DefaultFiles are looked up in the working directory when --config is not given
var DefaultFiles = []string{"terio.toml", "terio.yaml", "terio.yml"}

// Config holds all configuration for the application
type Config struct {
	Addr            string  `koanf:"addr"`
	Port            int     `koanf:"port"`
	Data            string  `koanf:"data"`       // sqlite file, or :memory:
	ExportDir       string  `koanf:"export_dir"` // where CLI exports are written
	Password        string  `koanf:"password"`   // empty leaves the API open
	OpenBrowser     bool    `koanf:"open"`
	Watch           bool    `koanf:"watch"`
	Verbosity       string  `koanf:"verbosity"`
	VerboseCnt      int     `koanf:"verbose"`
	JSONLogs        bool    `koanf:"json_logs"`
	Seed            uint64  `koanf:"seed"`
	ContainerWidth  float64 `koanf:"container_width"`
	ContainerHeight float64 `koanf:"container_height"`

	// File is the config file that was loaded, if any
	File string `koanf:"-"`
}

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"addr":             "localhost",
		"port":             8080,
		"data":             "terio.db",
		"export_dir":       "exports",
		"password":         "",
		"open":             true,
		"watch":            false,
		"verbosity":        "",
		"verbose":          0,
		"json_logs":        false,
		"seed":             0,
		"container_width":  1000,
		"container_height": 1000,
	}
}

// RegisterFlags adds the configuration flags to f. Flag names use dashes; the
// matching config keys use underscores.
func RegisterFlags(f *pflag.FlagSet) {
	f.String("config", "", "Path to a terio.toml or terio.yaml config file")
	f.String("env-file", ".env", "Path to a dotenv file with TERIO_ variables")
	f.String("addr", "localhost", "Interface to listen on")
	f.IntP("port", "p", 8080, "Port for the web server")
	f.StringP("data", "d", "terio.db", "SQLite database file (:memory: keeps nothing)")
	f.String("export-dir", "exports", "Directory CLI exports are written to")
	f.String("password", "", "Password protecting the web API (empty disables login)")
	f.Bool("open", true, "Open the browser once the server is up")
	f.Bool("watch", false, "Reload the config file when it changes")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	f.Bool("json-logs", false, "Write logs as JSON")
	f.Uint64("seed", 0, "Seed for node placement (0 picks one)")
	f.Float64("container-width", 1000, "Initial board container width in pixels")
	f.Float64("container-height", 1000, "Initial board container height in pixels")
}

// Load loads configuration from defaults, config file, dotenv file, environment
// variables, and flags.
// Priority: Flags > Env > .env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, explicit or discovered
	path, explicit := flagString(f, "config")
	if path == "" {
		path = findConfigFile(".")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
			path = ""
		}
	}

	// 3. Dotenv file. Read, not Load: the process environment is left untouched
	envFile, _ := flagString(f, "env-file")
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		if err := k.Load(makeMapProvider(envKeys(dotenv)), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	// 4. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot start with
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ContainerWidth <= 0 || c.ContainerHeight <= 0 {
		return fmt.Errorf("invalid container size %gx%g", c.ContainerWidth, c.ContainerHeight)
	}
	if c.Data == "" {
		return errors.New("data path must not be empty")
	}
	return nil
}

// ListenAddr is the host:port the web server binds to
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Addr, strconv.Itoa(c.Port))
}

// InMemory reports whether nothing is persisted across runs
func (c *Config) InMemory() bool {
	return c.Data == ":memory:"
}

func findConfigFile(dir string) string {
	for _, name := range DefaultFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

// envKey maps TERIO_EXPORT_DIR to export_dir
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func envKeys(vars map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(vars))
	for name, v := range vars {
		if strings.HasPrefix(name, EnvPrefix) {
			out[envKey(name)] = v
		}
	}
	return out
}

// flagString returns a string flag and whether it was set explicitly
func flagString(f *pflag.FlagSet, name string) (string, bool) {
	if f == nil || f.Lookup(name) == nil {
		return "", false
	}
	v, _ := f.GetString(name)
	return v, f.Changed(name)
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
