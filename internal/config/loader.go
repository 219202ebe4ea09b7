package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable holding the YAML file path.
const ConfigFileEnv = "CONFIG_FILE"

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Loader builds a Config from its layered sources.
type Loader struct {
	service    Service
	configFile string
	envFiles   []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigFile sets the YAML file, overriding CONFIG_FILE.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) {
		l.configFile = path
	}
}

// WithEnvFiles sets the dotenv files to read. Missing files are ignored.
func WithEnvFiles(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.envFiles = paths
	}
}

// NewLoader creates a new configuration loader for the service.
func NewLoader(service Service, opts ...LoaderOption) *Loader {
	l := &Loader{
		service:  service,
		envFiles: []string{".env"},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads and validates the configuration of the service.
func Load(service Service, opts ...LoaderOption) (*Config, error) {
	return NewLoader(service, opts...).Load()
}

// Load applies every source in order and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig(l.service)

	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}

	path := l.configFile
	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := l.loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFiles exports dotenv entries that are not already set.
func (l *Loader) loadEnvFiles() error {
	for _, path := range l.envFiles {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// loadFile overlays the YAML file onto cfg.
func (l *Loader) loadFile(path string, cfg *Config) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // path is operator supplied
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return parseYAML(data, cfg)
}

// parseYAML substitutes environment variables and decodes data into cfg.
// Keys absent from the document keep their current values.
func parseYAML(data []byte, cfg *Config) error {
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		defaultValue := ""
		if len(submatches) >= 3 {
			defaultValue = submatches[2]
		}

		if value, exists := os.LookupEnv(submatches[1]); exists {
			return value
		}
		return defaultValue
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}
