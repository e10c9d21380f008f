package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix   = "JIRADATASET_"
	maxPageSize = 100
)

// Config holds all configuration options for the dataset pipeline
type Config struct {
	// Jira endpoint and credentials
	Jira JiraConfig `yaml:"jira" json:"jira"`

	// Retry and backoff policy for page fetches
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Pagination and partition settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Artifact directories
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Checkpoint backend
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Final dataset sinks
	Dataset DatasetConfig `yaml:"dataset" json:"dataset"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// JiraConfig holds the search endpoint configuration
type JiraConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	Username       string        `yaml:"username" json:"username"`
	APIToken       string        `yaml:"api_token" json:"api_token"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
}

// RetryConfig holds the retry budget and backoff parameters
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Base         float64       `yaml:"base" json:"base"`
}

// ScrapeConfig holds partition and pagination settings
type ScrapeConfig struct {
	Projects            []string      `yaml:"projects" json:"projects"`
	PageSize            int           `yaml:"page_size" json:"page_size"`
	MaxIssuesPerProject int           `yaml:"max_issues_per_project" json:"max_issues_per_project"`
	Resume              bool          `yaml:"resume" json:"resume"`
	PoliteDelay         time.Duration `yaml:"polite_delay" json:"polite_delay"`
	PartitionDelay      time.Duration `yaml:"partition_delay" json:"partition_delay"`
	RequestsPerMinute   int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// StorageConfig holds artifact locations
type StorageConfig struct {
	RawDir       string `yaml:"raw_dir" json:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir" json:"processed_dir"`
	OutputDir    string `yaml:"output_dir" json:"output_dir"`
	OutputFile   string `yaml:"output_file" json:"output_file"`
	Workers      int    `yaml:"workers" json:"workers"`
}

// CheckpointConfig selects and configures the checkpoint backend
type CheckpointConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	Path          string `yaml:"path" json:"path"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisKey      string `yaml:"redis_key" json:"redis_key"`
}

// DatasetConfig holds optional sinks for the final dataset
type DatasetConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn" json:"postgres_dsn"`
	PostgresTable string `yaml:"postgres_table" json:"postgres_table"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Jira: JiraConfig{
			BaseURL:        "https://issues.apache.org/jira/rest/api/2",
			UserAgent:      "Apache-Jira-Scraper/1.0",
			ConnectTimeout: 30 * time.Second,
			ReadTimeout:    30 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 2 * time.Second,
			MaxDelay:     60 * time.Second,
			Base:         2.0,
		},
		Scrape: ScrapeConfig{
			Projects:          []string{"SPARK", "KAFKA", "HADOOP"},
			PageSize:          50,
			Resume:            true,
			PoliteDelay:       500 * time.Millisecond,
			PartitionDelay:    1 * time.Second,
			RequestsPerMinute: 0,
		},
		Storage: StorageConfig{
			RawDir:       "data/raw",
			ProcessedDir: "data/processed",
			OutputDir:    "output",
			OutputFile:   "final_dataset.jsonl",
			Workers:      4,
		},
		Checkpoint: CheckpointConfig{
			Backend:  "file",
			Path:     "checkpoints/state.json",
			RedisKey: "jiradataset:checkpoints",
		},
		Dataset: DatasetConfig{
			PostgresTable: "jira_issues",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Jira endpoint and credentials
	if baseURL := os.Getenv(envPrefix + "BASE_URL"); baseURL != "" {
		c.Jira.BaseURL = baseURL
	}
	if userAgent := os.Getenv(envPrefix + "USER_AGENT"); userAgent != "" {
		c.Jira.UserAgent = userAgent
	}
	if username := os.Getenv(envPrefix + "USERNAME"); username != "" {
		c.Jira.Username = username
	}
	if token := os.Getenv(envPrefix + "API_TOKEN"); token != "" {
		c.Jira.APIToken = token
	}

	// Partitions
	if projects := os.Getenv(envPrefix + "PROJECTS"); projects != "" {
		c.Scrape.Projects = ParseProjects(projects)
	}
	if pageSize := os.Getenv(envPrefix + "PAGE_SIZE"); pageSize != "" {
		var val int
		fmt.Sscanf(pageSize, "%d", &val)
		if val > 0 {
			c.Scrape.PageSize = val
		}
	}
	if limit := os.Getenv(envPrefix + "MAX_ISSUES"); limit != "" {
		var val int
		fmt.Sscanf(limit, "%d", &val)
		if val >= 0 {
			c.Scrape.MaxIssuesPerProject = val
		}
	}
	if rpm := os.Getenv(envPrefix + "REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val >= 0 {
			c.Scrape.RequestsPerMinute = val
		}
	}

	// Retry budget
	if retries := os.Getenv(envPrefix + "MAX_RETRIES"); retries != "" {
		var val int
		if _, err := fmt.Sscanf(retries, "%d", &val); err == nil && val >= 0 {
			c.Retry.MaxRetries = val
		}
	}

	// Storage
	if rawDir := os.Getenv(envPrefix + "RAW_DIR"); rawDir != "" {
		c.Storage.RawDir = rawDir
	}
	if outputDir := os.Getenv(envPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Storage.OutputDir = outputDir
	}

	// Checkpoints
	if backend := os.Getenv(envPrefix + "CHECKPOINT_BACKEND"); backend != "" {
		c.Checkpoint.Backend = strings.ToLower(backend)
	}
	if path := os.Getenv(envPrefix + "CHECKPOINT_PATH"); path != "" {
		c.Checkpoint.Path = path
	}
	if addr := os.Getenv(envPrefix + "REDIS_ADDR"); addr != "" {
		c.Checkpoint.RedisAddr = addr
	}
	if password := os.Getenv(envPrefix + "REDIS_PASSWORD"); password != "" {
		c.Checkpoint.RedisPassword = password
	}

	// Dataset sinks
	if dsn := os.Getenv(envPrefix + "POSTGRES_DSN"); dsn != "" {
		c.Dataset.PostgresDSN = dsn
	}

	// Metrics
	if addr := os.Getenv(envPrefix + "METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
		c.Metrics.Enabled = true
	}

	// Logging level
	if logLevel := os.Getenv(envPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".jiradataset.yaml",
		".jiradataset.yml",
		filepath.Join(home, ".config", "jiradataset", "config.yaml"),
		filepath.Join(home, ".config", "jiradataset", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Jira.BaseURL == "" {
		errs = append(errs, errors.New("jira base URL is required"))
	}
	if c.Jira.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("connect timeout must be positive"))
	}
	if c.Jira.ReadTimeout <= 0 {
		errs = append(errs, errors.New("read timeout must be positive"))
	}
	if (c.Jira.Username == "") != (c.Jira.APIToken == "") {
		errs = append(errs, errors.New("jira username and API token must be set together"))
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("retry delays cannot be negative"))
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		errs = append(errs, errors.New("max retry delay must not be below the initial delay"))
	}
	if c.Retry.Base < 1 {
		errs = append(errs, errors.New("backoff base must be at least 1"))
	}

	if len(c.Scrape.Projects) == 0 {
		errs = append(errs, errors.New("at least one project is required"))
	}
	for _, p := range c.Scrape.Projects {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, errors.New("project keys cannot be empty"))
			break
		}
	}
	if c.Scrape.PageSize <= 0 || c.Scrape.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("page size must be between 1 and %d", maxPageSize))
	}
	if c.Scrape.MaxIssuesPerProject < 0 {
		errs = append(errs, errors.New("max issues per project cannot be negative"))
	}
	if c.Scrape.PoliteDelay < 0 || c.Scrape.PartitionDelay < 0 {
		errs = append(errs, errors.New("scrape delays cannot be negative"))
	}
	if c.Scrape.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Storage.RawDir == "" {
		errs = append(errs, errors.New("raw directory is required"))
	}
	if c.Storage.ProcessedDir == "" {
		errs = append(errs, errors.New("processed directory is required"))
	}
	if c.Storage.OutputDir == "" || c.Storage.OutputFile == "" {
		errs = append(errs, errors.New("output directory and file are required"))
	}
	if c.Storage.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}

	switch strings.ToLower(c.Checkpoint.Backend) {
	case "file":
		if c.Checkpoint.Path == "" {
			errs = append(errs, errors.New("checkpoint path is required for the file backend"))
		}
	case "redis":
		if c.Checkpoint.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required for the redis backend"))
		}
		if c.Checkpoint.RedisKey == "" {
			errs = append(errs, errors.New("redis key is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid checkpoint backend: %q", c.Checkpoint.Backend))
	}

	if c.Dataset.PostgresDSN != "" && c.Dataset.PostgresTable == "" {
		errs = append(errs, errors.New("postgres table is required when a DSN is set"))
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics address is required when metrics are enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override the loaded values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Jira.BaseURL = baseURL
	}
	if projects, ok := flags["projects"].([]string); ok && len(projects) > 0 {
		c.Scrape.Projects = normalizeProjects(projects)
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Scrape.PageSize = pageSize
	}
	if limit, ok := flags["limit"].(int); ok && limit >= 0 {
		c.Scrape.MaxIssuesPerProject = limit
	}
	if resume, ok := flags["resume"].(bool); ok {
		c.Scrape.Resume = resume
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm >= 0 {
		c.Scrape.RequestsPerMinute = rpm
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries >= 0 {
		c.Retry.MaxRetries = maxRetries
	}
	if rawDir, ok := flags["raw-dir"].(string); ok && rawDir != "" {
		c.Storage.RawDir = rawDir
	}
	if processedDir, ok := flags["processed-dir"].(string); ok && processedDir != "" {
		c.Storage.ProcessedDir = processedDir
	}
	if outputDir, ok := flags["output-dir"].(string); ok && outputDir != "" {
		c.Storage.OutputDir = outputDir
	}
	if backend, ok := flags["checkpoint-backend"].(string); ok && backend != "" {
		c.Checkpoint.Backend = strings.ToLower(backend)
	}
	if path, ok := flags["checkpoint-path"].(string); ok && path != "" {
		c.Checkpoint.Path = path
	}
	if addr, ok := flags["redis-addr"].(string); ok && addr != "" {
		c.Checkpoint.RedisAddr = addr
	}
	if dsn, ok := flags["postgres-dsn"].(string); ok && dsn != "" {
		c.Dataset.PostgresDSN = dsn
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Addr = addr
		c.Metrics.Enabled = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// ParseProjects splits a comma separated list of project keys
func ParseProjects(s string) []string {
	return normalizeProjects(strings.Split(s, ","))
}

func normalizeProjects(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are not an error
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".jiradataset.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
