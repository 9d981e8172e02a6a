// Package config builds the process configuration once at start-up from
// defaults, an optional YAML file, an optional .env file, the environment
// and command-line overrides, in that order.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"deployclean/internal/security"
	"deployclean/pkg/fileutil"
)

const (
	// DefaultConfigFile is searched for with fileutil.DefaultConfigPaths.
	DefaultConfigFile = "deployclean.yaml"

	// DefaultEnvFile is loaded from the working directory when present.
	DefaultEnvFile = ".env"

	DefaultAPIURL    = "https://api.github.com/"
	DefaultTimeout   = 30
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 5000
	DefaultWorkers   = 2
	DefaultQueueSize = 16
	DefaultRateLimit = 5
	DefaultRateBurst = 20
)

// Environment variable names.
const (
	EnvToken          = "GITHUB_TOKEN"
	EnvOwner          = "GITHUB_USER"
	EnvRepo           = "GITHUB_REPO"
	EnvAPIURL         = "DEPLOYCLEAN_API_URL"
	EnvTimeout        = "DEPLOYCLEAN_TIMEOUT"
	EnvDBPath         = "DEPLOYCLEAN_DB"
	EnvHost           = "DEPLOYCLEAN_HOST"
	EnvPort           = "DEPLOYCLEAN_PORT"
	EnvLogFile        = "DEPLOYCLEAN_LOG_FILE"
	EnvStaticDir      = "DEPLOYCLEAN_STATIC_DIR"
	EnvAllowedOrigins = "DEPLOYCLEAN_ALLOWED_ORIGINS"
)

// ServerConfig holds the settings used only by the serve command.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	LogFile        string   `yaml:"log_file"`
	StaticDir      string   `yaml:"static_dir"`
	Workers        int      `yaml:"workers"`
	QueueSize      int      `yaml:"queue_size"`
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config is the root configuration structure.
type Config struct {
	GitHubToken string       `yaml:"github_token"`
	Owner       string       `yaml:"owner"`
	Repo        string       `yaml:"repo"`
	APIURL      string       `yaml:"api_url"`
	Timeout     int          `yaml:"timeout"` // seconds
	DBPath      string       `yaml:"db_path"`
	Server      ServerConfig `yaml:"server"`
}

// Overrides are values given on the command line. Empty fields are ignored.
type Overrides struct {
	Token  string
	Owner  string
	Repo   string
	APIURL string
	DBPath string
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
		Server: ServerConfig{
			Host:      DefaultHost,
			Port:      DefaultPort,
			Workers:   DefaultWorkers,
			QueueSize: DefaultQueueSize,
			RateLimit: DefaultRateLimit,
			RateBurst: DefaultRateBurst,
		},
	}
}

// Load runs the whole configuration chain. An explicit configPath must
// exist; otherwise DefaultConfigFile is searched for and may be absent.
func Load(configPath string, overrides Overrides) (*Config, error) {
	cfg := NewConfig()

	path := configPath
	if path == "" {
		path = fileutil.FindConfigOptional(DefaultConfigFile)
	} else if !fileutil.FileExists(path) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := LoadDotEnv(DefaultEnvFile); err != nil {
		return nil, err
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	cfg.Apply(overrides)
	return cfg, nil
}

// LoadFromFile merges a YAML file into the configuration. Keys missing from
// the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if !fileutil.FileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies environment variables that are set.
func (c *Config) LoadFromEnv() error {
	setString(&c.GitHubToken, EnvToken)
	setString(&c.Owner, EnvOwner)
	setString(&c.Repo, EnvRepo)
	setString(&c.APIURL, EnvAPIURL)
	setString(&c.DBPath, EnvDBPath)
	setString(&c.Server.Host, EnvHost)
	setString(&c.Server.LogFile, EnvLogFile)
	setString(&c.Server.StaticDir, EnvStaticDir)

	if err := setInt(&c.Timeout, EnvTimeout); err != nil {
		return err
	}
	if err := setInt(&c.Server.Port, EnvPort); err != nil {
		return err
	}

	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}

	return nil
}

// Apply sets every non-empty override.
func (c *Config) Apply(o Overrides) {
	if o.Token != "" {
		c.GitHubToken = o.Token
	}
	if o.Owner != "" {
		c.Owner = o.Owner
	}
	if o.Repo != "" {
		c.Repo = o.Repo
	}
	if o.APIURL != "" {
		c.APIURL = o.APIURL
	}
	if o.DBPath != "" {
		c.DBPath = o.DBPath
	}
}

// Validate reports every configuration problem found, one line each.
// Owner and repository are optional here; Target.Validate requires them.
func (c *Config) Validate() []string {
	var errors []string

	if c.GitHubToken == "" {
		errors = append(errors, fmt.Sprintf("  - missing GitHub token (set %s or github_token)", EnvToken))
	} else if security.IsPlaceholder(c.GitHubToken) {
		errors = append(errors, "  - GitHub token appears to be a placeholder value")
	}

	if c.Owner != "" {
		if err := security.ValidateOwner(c.Owner); err != nil {
			errors = append(errors, fmt.Sprintf("  - owner '%s': %v", c.Owner, err))
		}
	}

	if c.Repo != "" {
		if err := security.ValidateRepoName(c.Repo); err != nil {
			errors = append(errors, fmt.Sprintf("  - repo '%s': %v", c.Repo, err))
		}
	}

	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("  - api_url must be an absolute http(s) URL, got '%s'", c.APIURL))
	}

	if c.Timeout <= 0 {
		errors = append(errors, fmt.Sprintf("  - timeout must be positive, got %d", c.Timeout))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("  - server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Server.Workers < 1 {
		errors = append(errors, fmt.Sprintf("  - server.workers must be at least 1, got %d", c.Server.Workers))
	}

	if c.Server.QueueSize < 1 {
		errors = append(errors, fmt.Sprintf("  - server.queue_size must be at least 1, got %d", c.Server.QueueSize))
	}

	return errors
}

// ValidationError joins the lines returned by Validate into one error, or
// returns nil when there are none.
func ValidationError(lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration:\n%s", strings.Join(lines, "\n"))
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}
