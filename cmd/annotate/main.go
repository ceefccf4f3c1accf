package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/annotate/pkg/annotate"
	"github.com/cognicore/annotate/pkg/annotate/config"
	"github.com/cognicore/annotate/pkg/annotate/model"
	"github.com/cognicore/annotate/pkg/annotate/store"
	"github.com/cognicore/annotate/pkg/annotate/store/sqlite"
)

// UI contains the output streams for the application.
// Used for injecting buffers during testing.
type UI struct {
	Out io.Writer
	Err io.Writer
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	ui := UI{Out: os.Stdout, Err: os.Stderr}
	if err := newApp(ui).Run(os.Args); err != nil {
		fmt.Fprintf(ui.Err, "annotate: %v\n", err)
		os.Exit(1)
	}
}

func newApp(ui UI) *cli.App {
	return &cli.App{
		Name:      "annotate",
		Usage:     "split text into sentences, tokens, POS tags and lemmas",
		Writer:    ui.Out,
		ErrWriter: ui.Err,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "pipeline YAML config (env ANNOTATE_CONFIG)"},
			&cli.StringFlag{Name: "models-dir", Usage: "directory of name-version.bin model blobs (env ANNOTATE_MODELS_DIR)"},
			&cli.StringFlag{Name: "store", Usage: "SQLite store path (env ANNOTATE_STORE)"},
			&cli.IntFlag{Name: "workers", Usage: "sentences annotated in parallel per input"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
		},
		Commands: []*cli.Command{
			demoCommand(ui),
			runCommand(ui),
			compileCommand(ui),
			inspectCommand(ui),
			showCommand(ui),
		},
	}
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}

// env is the per-invocation state shared by commands.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store store.Store
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
	_ = e.log.Sync()
}

// setup resolves configuration, logging and (when configured) the store.
func setup(c *cli.Context, ui UI) (*env, error) {
	log := newLogger(ui.Err, c.Bool("verbose"))

	loader := config.Loader{
		ConfigPath: c.String("config"),
		ModelsDir:  c.String("models-dir"),
		Workers:    c.Int("workers"),
		StorePath:  c.String("store"),
	}
	loader.FromEnv()
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log}
	if cfg.Store != "" {
		st, err := sqlite.OpenSQLite(c.Context, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open store %s: %w", cfg.Store, err)
		}
		e.store = st
	}
	return e, nil
}

// locator prefers models held in the store over the configured source.
func (e *env) locator() model.Locator {
	if e.store != nil {
		return model.Chain{e.store, e.cfg.Locator()}
	}
	return e.cfg.Locator()
}

// pipeline builds the annotation pipeline. Progress goes to stderr so that
// stdout carries only results. Failure is fatal for the command.
func (e *env) pipeline(ctx context.Context, ui UI) (*annotate.Pipeline, error) {
	fmt.Fprintln(ui.Err, "Loading models...")
	p, err := annotate.New(ctx, e.locator(), e.cfg.Models.Refs, annotate.Options{
		Logger:  e.log,
		Workers: e.cfg.Workers,
	})
	if err != nil {
		e.log.Error("pipeline construction failed", zap.Error(err))
		return nil, err
	}
	fmt.Fprintln(ui.Err, "Models loaded.")
	return p, nil
}
