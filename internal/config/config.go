// Package config manages application configuration from files and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Limits struct {
		MaxFileSize   string        `mapstructure:"max_file_size"`
		MaxPages      int           `mapstructure:"max_pages"`
		MaxSlides     int           `mapstructure:"max_slides"`
		ParseTimeout  time.Duration `mapstructure:"parse_timeout"`
		MaxMemberSize string        `mapstructure:"max_member_size"`
	} `mapstructure:"limits"`
	PDF struct {
		Engine   string  `mapstructure:"engine"`
		Font     string  `mapstructure:"font"`
		FontSize float64 `mapstructure:"font_size"`
		FontFile string  `mapstructure:"font_file"`
	} `mapstructure:"pdf"`
	Browser struct {
		RemoteURL string `mapstructure:"remote_url"`
	} `mapstructure:"browser"`
	Server struct {
		Addr         string        `mapstructure:"addr"`
		DownloadTTL  time.Duration `mapstructure:"download_ttl"`
		MaxDownloads int           `mapstructure:"max_downloads"`
	} `mapstructure:"server"`
	Audit struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"audit"`
	Output struct {
		Color bool `mapstructure:"color"`
	} `mapstructure:"output"`
}

// defaults are applied before the config file and environment are read.
var defaults = map[string]any{
	"limits.max_file_size":   "50MiB",
	"limits.max_pages":       50,
	"limits.max_slides":      50,
	"limits.parse_timeout":   "30s",
	"limits.max_member_size": "256MiB",
	"pdf.engine":             "native",
	"pdf.font":               "Helvetica",
	"pdf.font_size":          12,
	"pdf.font_file":          "",
	"browser.remote_url":     "",
	"server.addr":            ":8080",
	"server.download_ttl":    "10m",
	"server.max_downloads":   64,
	"audit.enabled":          true,
	"audit.path":             "~/.docconv/history.jsonl",
	"output.color":           true,
}

// SetDefaults registers the default values with viper.
func SetDefaults() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

// Load reads the configuration from ~/.docconv/config.yaml and DOCCONV_
// environment variables (DOCCONV_LIMITS_MAX_PAGES, DOCCONV_PDF_ENGINE, ...).
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())

	SetDefaults()

	viper.SetEnvPrefix("DOCCONV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (non-fatal if missing)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode configuration — check %s: %w", ConfigPath(), err)
	}
	return &cfg, nil
}

// FileSizeLimit parses limits.max_file_size ("50MiB", "20 MB", "1048576").
func (c *Config) FileSizeLimit() (int64, error) {
	return parseSize("limits.max_file_size", c.Limits.MaxFileSize)
}

// MemberSizeLimit parses limits.max_member_size.
func (c *Config) MemberSizeLimit() (int64, error) {
	return parseSize("limits.max_member_size", c.Limits.MaxMemberSize)
}

func parseSize(key, s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%s: could not parse size %q — use a value like \"50MiB\": %w", key, s, err)
	}
	return int64(n), nil
}

// AuditPath returns audit.path with a leading ~/ expanded.
func (c *Config) AuditPath() string {
	return ExpandHome(c.Audit.Path)
}

// ExpandHome expands a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docconv"
	}
	return filepath.Join(home, ".docconv")
}
