package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/gandtscales/scalesite/catalogs"
	"github.com/gandtscales/scalesite/pkg/catalog"
	"github.com/gandtscales/scalesite/pkg/config"
	"github.com/gandtscales/scalesite/pkg/site"
	"github.com/gandtscales/scalesite/pkg/util"
)

// commonFlags are accepted by every command that loads the project.
type commonFlags struct {
	configPath  string
	catalogPath string
	contentPath string
	basePath    string
	logLevel    string
	logFormat   string
}

func addCommonFlags(fs *pflag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVarP(&c.configPath, "config", "c", "", "config file (default "+config.DefaultPath+" when present)")
	fs.StringVar(&c.catalogPath, "catalog", "", "product catalog JSON (default: the bundled catalog)")
	fs.StringVar(&c.contentPath, "content", "", "directory of markdown overrides for the built-in pages")
	fs.StringVar(&c.basePath, "base-path", "", "deployment base path, e.g. /gandscales-site")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&c.logFormat, "log-format", "", "log format: text or json")
	return c
}

// app is the resolved configuration shared by all commands.
type app struct {
	cfg    *config.Config
	source string
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// load resolves the config through the fallback chain:
//  1. --config flag (must exist)
//  2. .scalesite/config.yaml in the working directory
//  3. built-in defaults
//
// and then applies flag overrides on top.
func (c *commonFlags) load(fs *pflag.FlagSet, stdout, stderr io.Writer) (*app, error) {
	cfg, source, err := config.Resolve(c.configPath)
	if err != nil {
		return nil, err
	}

	if fs.Changed("catalog") {
		cfg.Paths.Catalog = c.catalogPath
	}
	if fs.Changed("content") {
		cfg.Paths.Content = c.contentPath
	}
	if fs.Changed("base-path") {
		cfg.Site.BasePath = config.NormalizeBasePath(c.basePath)
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = c.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = c.logFormat
	}

	level, err := util.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := util.ParseLogFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logger := util.NewLogger(util.LoggerConfig{Level: level, Format: format, Output: stderr})
	util.SetDefault(logger)

	if source != "" {
		logger.Debug("Loaded config", "path", source)
	} else {
		logger.Debug("No config file, using defaults")
	}

	return &app{cfg: cfg, source: source, logger: logger, stdout: stdout, stderr: stderr}, nil
}

// loadCatalog reads the configured catalog, or the bundled one when no
// path is configured.
func (a *app) loadCatalog() (*catalog.QueryService, error) {
	if a.cfg.Paths.Catalog == "" {
		qs, err := catalog.LoadAndQueryBytes(catalogs.ProductsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to load bundled catalog: %w", err)
		}
		return qs, nil
	}
	qs, err := catalog.LoadAndQuery(a.cfg.Paths.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", a.cfg.Paths.Catalog, err)
	}
	return qs, nil
}

func (a *app) siteOptions() site.Options {
	return site.Options{Logger: a.logger}
}

// renderer loads the catalog and builds a renderer for it.
func (a *app) renderer() (*site.Renderer, error) {
	qs, err := a.loadCatalog()
	if err != nil {
		return nil, err
	}
	return site.New(a.cfg, qs, a.siteOptions())
}
