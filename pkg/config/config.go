// Package config loads the project configuration from .scalesite/config.yaml.
//
// Resolution follows a fallback chain: an explicit --config path, then
// .scalesite/config.yaml in the working directory, then built-in defaults.
// Values present in the file override the defaults field by field.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the project config file looked up when no --config flag is given.
const DefaultPath = ".scalesite/config.yaml"

// Config is the full project configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Company CompanyConfig `yaml:"company"`
	Paths   PathsConfig   `yaml:"paths"`
	Assets  AssetsConfig  `yaml:"assets"`
	Build   BuildConfig   `yaml:"build"`
	Server  ServerConfig  `yaml:"server"`
	Watch   WatchConfig   `yaml:"watch"`
	Log     LogConfig     `yaml:"log"`
	MCP     MCPConfig     `yaml:"mcp"`
}

// SiteConfig holds site-wide presentation settings.
type SiteConfig struct {
	Name          string `yaml:"name"`
	ShortName     string `yaml:"short_name"`
	Tagline       string `yaml:"tagline"`
	Description   string `yaml:"description"`
	URL           string `yaml:"url"`
	BasePath      string `yaml:"base_path"`
	PageSize      int    `yaml:"page_size"`
	TitleTemplate string `yaml:"title_template"`
	DefaultTitle  string `yaml:"default_title"`
	OGImage       string `yaml:"og_image"`
	Locale        string `yaml:"locale"`
}

// CompanyConfig holds the contact details rendered in the footer and contact pages.
type CompanyConfig struct {
	LegalName   string   `yaml:"legal_name"`
	Founded     int      `yaml:"founded"`
	Slogan      string   `yaml:"slogan"`
	Phone       string   `yaml:"phone"`
	PhoneAlt    string   `yaml:"phone_alt"`
	Cells       []string `yaml:"cells"`
	WhatsApp    string   `yaml:"whatsapp"`
	Email       string   `yaml:"email"`
	Address     string   `yaml:"address"`
	Hours       []string `yaml:"hours"`
	Offices     []Office `yaml:"offices"`
	Social      []Link   `yaml:"social"`
	EffectiveOn string   `yaml:"legal_effective_date"`
}

// Office is one branch listed on the contact page.
type Office struct {
	Name    string   `yaml:"name"`
	Address string   `yaml:"address"`
	Phones  []string `yaml:"phones"`
	Email   string   `yaml:"email"`
	Head    bool     `yaml:"head_office"`
}

// Link is a labelled external URL.
type Link struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// PathsConfig locates inputs and outputs on disk. Empty Catalog and Content
// fall back to the embedded bundles.
type PathsConfig struct {
	Catalog string `yaml:"catalog"`
	Content string `yaml:"content"`
	Assets  string `yaml:"assets"`
	Output  string `yaml:"output"`
}

// AssetsConfig selects which files under Paths.Assets are exported.
type AssetsConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// BuildConfig controls static export.
type BuildConfig struct {
	Workers int  `yaml:"workers"`
	Clean   bool `yaml:"clean"`
}

// ServerConfig controls the preview server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CacheSize       int           `yaml:"cache_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Ignore   []string      `yaml:"ignore"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MCPConfig controls the assistant tool server.
type MCPConfig struct {
	LogPath string `yaml:"log_path"`
}

// Default returns the built-in configuration for G&T Scale Services.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			Name:          "G&T Scale Services",
			ShortName:     "G&T Scales",
			Tagline:       "Precision Weighing Solutions",
			Description:   "Leading weighing company providing precision weighing equipment solutions. Reliable supply, repair, and certified calibration services since 2004.",
			URL:           "https://gandtscales.com",
			PageSize:      12,
			TitleTemplate: "%s | G&T Scale Services",
			DefaultTitle:  "G&T Scale Services | Precision Weighing Equipment Solutions",
			OGImage:       "/og-image.svg",
			Locale:        "en_ZW",
		},
		Company: CompanyConfig{
			LegalName: "G & T Scale Services",
			Founded:   2004,
			Slogan:    "We believe in our business, servicing, supplying and repairing of scales",
			Phone:     "+263 242 498 883",
			PhoneAlt:  "+263 242 498 884",
			Cells:     []string{"+263 772 914 705", "+263 772 819 521"},
			WhatsApp:  "+263772914705",
			Email:     "sales@gandtscales.com",
			Address:   "204 Robert Mugabe Road, Harare, Zimbabwe",
			Hours: []string{
				"Monday - Friday: 8:00 AM - 5:00 PM",
				"Saturday: 9:00 AM - 1:00 PM",
				"Sunday: Closed",
			},
			Offices: []Office{
				{
					Name:    "Zimbabwe (Harare) Head Office",
					Address: "204 Robert Mugabe Road, Harare, Zimbabwe",
					Phones:  []string{"+263 242 498 883", "+263 242 498 884"},
					Email:   "sales@gandtscales.com",
					Head:    true,
				},
				{
					Name:    "Zimbabwe (Bulawayo)",
					Address: "Suite 6 Fanum Building, AAZ offices, Leopold Takawira and J. Tongogara, Bulawayo",
					Phones:  []string{"+263 292 60779", "+263 292 60714"},
					Email:   "salesbyo@gandtscales.com",
				},
				{
					Name:    "South Africa",
					Address: "32 Bok Street, Joubert Park, Gauteng 2198",
					Phones:  []string{"+27 78 603 2628"},
				},
				{
					Name:    "Botswana (Gaborone)",
					Address: "Plot 170, Unit 11, Commerce Park, Box 839 Kgalaview, Gaborone, Botswana",
					Phones:  []string{"+267 311 0810", "+267 71 745 655"},
					Email:   "sales@gandtscalesbotswana.com",
				},
			},
			Social: []Link{
				{Name: "Facebook", URL: "https://facebook.com/gandtscales"},
				{Name: "Instagram", URL: "https://instagram.com/gandtscales"},
				{Name: "LinkedIn", URL: "https://linkedin.com/company/gandtscales"},
			},
			EffectiveOn: "29 December 2025",
		},
		Paths: PathsConfig{
			Assets: "public",
			Output: "out",
		},
		Assets: AssetsConfig{
			Include: []string{"**/*"},
			Exclude: []string{"**/.DS_Store", "**/*.psd", "**/.git/**"},
		},
		Build: BuildConfig{
			Clean: true,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:3000",
			CacheSize:       256,
			ShutdownTimeout: 5 * time.Second,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
			Ignore:   []string{"**/.git/**", "**/*~", "**/*.swp", "**/.#*", "**/4913"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path and overlays it onto Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML data onto Default() and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Resolve applies the fallback chain and reports which source was used.
//  1. Explicit flag value (must exist)
//  2. DefaultPath, when present
//  3. Default()
func Resolve(flagPath string) (*Config, string, error) {
	if flagPath != "" {
		cfg, err := Load(flagPath)
		if err != nil {
			return nil, "", err
		}
		return cfg, flagPath, nil
	}

	cfg, err := Load(DefaultPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return cfg, DefaultPath, nil
}

// normalize canonicalizes paths and rejects unusable values.
func (c *Config) normalize() error {
	var errs []error

	c.Site.BasePath = NormalizeBasePath(c.Site.BasePath)
	c.Site.URL = strings.TrimRight(c.Site.URL, "/")

	if c.Site.URL != "" {
		u, err := url.Parse(c.Site.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("site.url %q must be an absolute URL", c.Site.URL))
		}
	}
	if c.Site.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("site.page_size must be positive, got %d", c.Site.PageSize))
	}
	if !strings.Contains(c.Site.TitleTemplate, "%s") {
		errs = append(errs, fmt.Errorf("site.title_template %q must contain %%s", c.Site.TitleTemplate))
	}
	if c.Paths.Output == "" {
		errs = append(errs, errors.New("paths.output is required"))
	}
	if c.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("build.workers must not be negative, got %d", c.Build.Workers))
	}
	if c.Server.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("server.cache_size must be positive, got %d", c.Server.CacheSize))
	}

	return errors.Join(errs...)
}

// NormalizeBasePath returns "" or a path with exactly one leading slash and no trailing slash.
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
