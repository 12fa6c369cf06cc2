// Command scenemigrate upgrades every scene document under a directory to the
// current component schema versions and document format. Documents containing
// components from newer software fail loudly instead of being downgraded;
// unrecognized component types pass through untouched.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phanshaw/legendary-tribble/internal/core/document"
	"github.com/phanshaw/legendary-tribble/internal/core/observability/log"
	"github.com/phanshaw/legendary-tribble/internal/core/scene"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/registry"
	"github.com/phanshaw/legendary-tribble/internal/injector"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		in         = flag.String("in", "", "directory to walk for scene documents")
		out        = flag.String("out", "", "output directory (default: rewrite in place)")
		workers    = flag.Int("workers", 0, "concurrent file migrations (default: NumCPU)")
		dryRun     = flag.Bool("dry-run", false, "load and migrate but write nothing")
		verbose    = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	cfg := Config{}
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
	}
	if *in != "" {
		cfg.In = *in
	}
	if *out != "" {
		cfg.Out = *out
	}
	if *workers != 0 {
		cfg.Workers = *workers
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		flag.Usage()
		os.Exit(2)
	}

	level := log.LevelInfo
	if cfg.Verbose {
		level = log.LevelDebug
	}
	logger := log.New(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stopCh
		cancel()
	}()

	reg, err := injector.BuiltinRegistry()
	if err != nil {
		logger.Fatal("registering builtin components", zap.Error(err))
	}

	if err := run(ctx, cfg, reg, logger); err != nil {
		logger.Error("migration run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, reg *registry.Registry, logger *log.Logger) error {
	codec := injector.NewDocumentCodec(reg, logger)

	var paths []string
	err := filepath.WalkDir(cfg.In, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".scene.json") || strings.HasSuffix(path, ".scene.yaml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", cfg.In, err)
	}
	logger.Info("scanning complete",
		zap.String("dir", cfg.In), zap.Int("documents", len(paths)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := migrateFile(ctx, codec, cfg, path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			logger.Info("migrated", zap.String("path", path))
			return nil
		})
	}
	return g.Wait()
}

// migrateFile loads one document, which runs every component through its
// migration chain, then writes the upgraded document to the output tree.
// YAML inputs are written back as JSON.
func migrateFile(ctx context.Context, codec *document.Codec, cfg Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	isYAML := strings.HasSuffix(path, ".scene.yaml")
	var sc *scene.Scene
	if isYAML {
		sc, err = codec.LoadYAML(ctx, f)
	} else {
		sc, err = codec.Load(ctx, f)
	}
	if err != nil {
		return err
	}
	if cfg.DryRun {
		return nil
	}

	rel, err := filepath.Rel(cfg.In, path)
	if err != nil {
		return err
	}
	if isYAML {
		rel = strings.TrimSuffix(rel, ".scene.yaml") + ".scene.json"
	}
	dst := filepath.Join(cfg.Out, rel)
	if err = os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".scenemigrate-*")
	if err != nil {
		return err
	}
	if err = codec.Save(sc, tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
