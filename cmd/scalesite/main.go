package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/gandtscales/scalesite/pkg/builder"
	"github.com/gandtscales/scalesite/pkg/catalog"
	mcpserver "github.com/gandtscales/scalesite/pkg/mcp"
	"github.com/gandtscales/scalesite/pkg/mcplog"
	"github.com/gandtscales/scalesite/pkg/server"
	"github.com/gandtscales/scalesite/pkg/watch"
)

const version = "0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "build":
		err = runBuild(rest, stdout, stderr)
	case "serve":
		err = runServe(rest, stdout, stderr, false)
	case "watch":
		err = runServe(rest, stdout, stderr, true)
	case "mcp":
		err = runMCP(rest, stdout, stderr)
	case "inspect":
		err = runInspect(rest, stdout, stderr)
	case "validate":
		err = runValidate(rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "scalesite %s\n", version)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}

	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "scalesite %s: %v\n", command, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scalesite <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build      Export the site as static files")
	fmt.Fprintln(w, "  serve      Start the preview server")
	fmt.Fprintln(w, "  watch      Preview server that reloads and rebuilds on change")
	fmt.Fprintln(w, "  mcp        Serve catalog tools over stdio for AI assistants")
	fmt.Fprintln(w, "  inspect    Show one product: scalesite inspect <product-slug>")
	fmt.Fprintln(w, "  validate   Check the config, catalog and content")
	fmt.Fprintln(w, "  version    Print version")
	fmt.Fprintln(w, "  help       Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'scalesite <command> --help' for the flags of a command.")
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBuild(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("build", stderr)
	common := addCommonFlags(fs)
	out := fs.StringP("out", "o", "", "output directory (default from config, \"out\")")
	workers := fs.IntP("workers", "w", 0, "render workers (default 2x CPUs, 4 to 32)")
	noClean := fs.Bool("no-clean", false, "keep files already in the output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := common.load(fs, stdout, stderr)
	if err != nil {
		return err
	}
	if fs.Changed("out") {
		a.cfg.Paths.Output = *out
	}
	if fs.Changed("workers") {
		a.cfg.Build.Workers = *workers
	}
	if *noClean {
		a.cfg.Build.Clean = false
	}

	r, err := a.renderer()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	res, err := builder.New(r, builder.Options{Logger: a.logger}).Build(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Built %d pages and %d assets into %s in %s\n",
		res.Pages, res.Assets, res.OutputDir, res.Duration.Round(time.Millisecond))
	return nil
}

func runServe(args []string, stdout, stderr io.Writer, watching bool) error {
	name := "serve"
	if watching {
		name = "watch"
	}
	fs := newFlagSet(name, stderr)
	common := addCommonFlags(fs)
	addr := fs.StringP("addr", "a", "", "listen address (default from config, 127.0.0.1:3000)")
	var rebuild bool
	if watching {
		fs.BoolVar(&rebuild, "build", false, "also rebuild the static export after every change")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := common.load(fs, stdout, stderr)
	if err != nil {
		return err
	}
	if fs.Changed("addr") {
		a.cfg.Server.Addr = *addr
	}

	r, err := a.renderer()
	if err != nil {
		return err
	}
	srv, err := server.New(r, server.Options{Logger: a.logger, Site: a.siteOptions()})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	if watching {
		w, err := newWatcher(a)
		if err != nil {
			return err
		}
		defer w.Stop()

		w.OnChange(func(ch watch.Change) { srv.InvalidateAssets(ch.Paths...) })
		sinks := []func(*catalog.QueryService) error{srv.Reload}
		if rebuild {
			sinks = append(sinks, func(*catalog.QueryService) error {
				_, err := builder.New(srv.Renderer(), builder.Options{Logger: a.logger}).Build(ctx)
				return err
			})
		}
		w.ReloadOnChange(a.loadCatalog, sinks...)
		if err := w.Start(); err != nil {
			return err
		}
	}

	return srv.Run(ctx)
}

// newWatcher watches the inputs a.cfg points at. Missing optional
// directories are skipped.
func newWatcher(a *app) (*watch.Watcher, error) {
	w, err := watch.New(watch.Options{
		Debounce:   a.cfg.Watch.Debounce,
		Ignore:     a.cfg.Watch.Ignore,
		IgnoreDirs: []string{a.cfg.Paths.Output},
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}

	var errs []error
	if a.cfg.Paths.Catalog != "" {
		if err := w.AddFile(a.cfg.Paths.Catalog); err != nil {
			errs = append(errs, err)
		}
	}
	if a.source != "" {
		a.logger.Info("Config changes need a restart", "path", a.source)
	}
	for _, dir := range []string{a.cfg.Paths.Content, a.cfg.Paths.Assets} {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			a.logger.Debug("Not watching missing directory", "path", dir)
			continue
		}
		if err := w.AddDir(dir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}

func runMCP(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("mcp", stderr)
	common := addCommonFlags(fs)
	logPath := fs.String("log", "", "append a JSONL record of every tool call to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := common.load(fs, stdout, stderr)
	if err != nil {
		return err
	}
	if fs.Changed("log") {
		a.cfg.MCP.LogPath = *logPath
	}

	qs, err := a.loadCatalog()
	if err != nil {
		return err
	}

	callLog, err := mcplog.NewLogger(a.cfg.MCP.LogPath)
	if err != nil {
		return err
	}
	defer callLog.Close()

	a.logger.Info("Serving catalog tools on stdio", "products", len(qs.ListProducts()))
	return mcpserver.NewServer(qs, a.cfg, callLog, version).ServeStdio()
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	common := addCommonFlags(fs)
	asJSON := fs.Bool("json", false, "print the product as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: scalesite inspect <product-slug>")
	}

	a, err := common.load(fs, stdout, stderr)
	if err != nil {
		return err
	}
	qs, err := a.loadCatalog()
	if err != nil {
		return err
	}

	slug := fs.Arg(0)
	p, ok := qs.GetProductBySlug(slug)
	if !ok {
		return fmt.Errorf("product not found: %s%s", slug, suggest(qs, slug))
	}
	if *asJSON {
		return printProductJSON(stdout, qs, a.cfg, p)
	}
	printProductHuman(stdout, qs, a.cfg, p)
	return nil
}

func runValidate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("validate", stderr)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := common.load(fs, stdout, stderr)
	if err != nil {
		return err
	}
	qs, err := a.loadCatalog()
	if err != nil {
		return err
	}
	if err := builder.ValidatePatterns(a.cfg.Assets.Include, a.cfg.Assets.Exclude); err != nil {
		return err
	}

	// Building a renderer parses every template and content page.
	r, err := a.renderer()
	if err != nil {
		return err
	}

	source := a.source
	if source == "" {
		source = "built-in defaults"
	}
	catalogSource := a.cfg.Paths.Catalog
	if catalogSource == "" {
		catalogSource = "bundled catalog"
	} else {
		catalogSource = filepath.Clean(catalogSource)
	}

	fmt.Fprintf(stdout, "Config:   %s\n", source)
	fmt.Fprintf(stdout, "Catalog:  %s (%d categories, %d products)\n",
		catalogSource, len(qs.ListCategories()), len(qs.ListProducts()))
	fmt.Fprintf(stdout, "Routes:   %d\n", len(r.Routes()))

	dangling := qs.DanglingReferences()
	for _, p := range dangling {
		fmt.Fprintf(stdout, "Warning:  product %q references unknown category %q\n", p.Slug, p.Category)
	}
	fmt.Fprintln(stdout, "OK")
	return nil
}
