package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	RepositoryPath string         `mapstructure:"repository_path" validate:"required,dir"`
	Database       DatabaseConfig `mapstructure:"database" validate:"required"`
	Update         UpdateConfig   `mapstructure:"update"`
	Publish        PublishConfig  `mapstructure:"publish"`
	Watch          WatchConfig    `mapstructure:"watch"`
	IgnorePatterns []string       `mapstructure:"ignore_patterns"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Database string `mapstructure:"database" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

// UpdateConfig holds content update behavior settings
type UpdateConfig struct {
	// Converter is the external program turning source documents into
	// HTML. Empty means source files are read as-is.
	Converter string `mapstructure:"converter"`
	// SourceExtension is the file extension of convertible documents.
	SourceExtension string `mapstructure:"source_extension"`
}

// PublishConfig holds static-site publication settings
type PublishConfig struct {
	// SiteDir is the directory holding the frozen static site.
	SiteDir string `mapstructure:"site_dir"`
	// Container identifies the remote object-storage container.
	Container string `mapstructure:"container"`
}

// WatchConfig holds repository watching settings
type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms"`
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, sslMode,
	)
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "require",
		},
		Update: UpdateConfig{
			Converter:       "asciidoctor",
			SourceExtension: ".adoc",
		},
		Watch: WatchConfig{
			DebounceMs: 2000,
		},
		IgnorePatterns: []string{
			".git/**",
			"**/.DS_Store",
			"drafts/**",
			"README*",
		},
	}
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("database.port", defaults.Database.Port)
	v.SetDefault("database.sslmode", defaults.Database.SSLMode)
	v.SetDefault("update.converter", defaults.Update.Converter)
	v.SetDefault("update.source_extension", defaults.Update.SourceExtension)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)
	v.SetDefault("ignore_patterns", defaults.IgnorePatterns)

	// Configure config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	// Enable environment variable substitution
	v.AutomaticEnv()
	v.SetEnvPrefix("WEBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is okay if we have environment variables
	}

	// Unmarshal into struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in password
	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)

	// Expand repository and site paths
	cfg.RepositoryPath = expandPath(cfg.RepositoryPath)
	cfg.Publish.SiteDir = expandPath(cfg.Publish.SiteDir)

	// Derive container name from repository folder if not specified
	if cfg.Publish.Container == "" {
		cfg.Publish.Container = SanitizeIdentifier(filepath.Base(cfg.RepositoryPath))
	}

	// Validate
	validate := validator.New()

	// Register custom validation for directory existence
	validate.RegisterValidation("dir", func(fl validator.FieldLevel) bool {
		path := fl.Field().String()
		if path == "" {
			return false
		}
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		return info.IsDir()
	})

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// getConfigDir returns the appropriate config directory for the OS
func getConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "websync")
		}
		return filepath.Join(os.Getenv("USERPROFILE"), ".config", "websync")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "websync")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "websync")
	}
}

// GetStateDir returns the directory for storing state files
func GetStateDir() (string, error) {
	dir := getConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return dir, nil
}

// expandPath expands ~ and environment variables in a path
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path)
}

// SanitizeIdentifier converts a repository name into a valid container
// or schema identifier.
// Rules:
// - Lowercase only
// - Starts with letter or underscore
// - Contains only letters, digits, underscores
// - Spaces and hyphens become underscores
// - Max 63 characters
func SanitizeIdentifier(name string) string {
	// Convert to lowercase
	name = strings.ToLower(name)

	// Replace spaces and hyphens with underscores
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	// Remove any character that isn't alphanumeric or underscore
	reg := regexp.MustCompile(`[^a-z0-9_]`)
	name = reg.ReplaceAllString(name, "")

	// Collapse multiple underscores
	reg = regexp.MustCompile(`_+`)
	name = reg.ReplaceAllString(name, "_")

	// Trim leading/trailing underscores
	name = strings.Trim(name, "_")

	// Ensure it starts with a letter (prepend 'site_' if it starts with digit or is empty)
	if len(name) == 0 {
		name = "site"
	} else if unicode.IsDigit(rune(name[0])) {
		name = "site_" + name
	}

	// Max identifier length is 63 characters
	if len(name) > 63 {
		name = name[:63]
		// Make sure we don't end with underscore after truncation
		name = strings.TrimRight(name, "_")
	}

	return name
}
