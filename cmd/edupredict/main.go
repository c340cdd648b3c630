// Command edupredict generates synthetic student records, trains a Pass/Fail
// model on them and serves predictions from the command line or over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/edupredict/internal/adapters/http/api"
	"github.com/okian/edupredict/internal/adapters/http/swagger"
	app "github.com/okian/edupredict/internal/app"
	"github.com/okian/edupredict/internal/config"
	"github.com/okian/edupredict/pkg/logger"
	"github.com/okian/edupredict/pkg/metrics"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

const usage = `usage: edupredict <command> [flags]

commands:
  generate [-n 1000] [-out path] [-seed n]
  train    [-data path] [-model path] [-report path.yaml]
  predict  [-model path] [-proba] <attendance> <study_hours> <previous_marks> <assignment_score>
  predict  [-model path] [-proba] '{"attendance":..,"study_hours":..,"previous_marks":..,"assignment_score":..}'
  serve    [-addr :9080]

Use -- before positional values that start with a minus sign.
`

// errUsage marks command-line mistakes, reported with exit code 2.
var errUsage = errors.New("usage error")

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one subcommand and returns the process exit code. Only
// command results are written to stdout.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = io.WriteString(stderr, usage)
		return exitUsage
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return exitFailure
	}

	logOpts := []logger.Option{logger.WithWriter(stderr)}
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logger.WithFile(cfg.LogFile))
	}
	if err := logger.Init(logOpts...); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging:", err)
		return exitFailure
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Configure(app.MetricsOptions(cfg)...)

	var cmd func(context.Context, *config.Config, []string, io.Writer, io.Writer) error
	switch args[0] {
	case "generate":
		cmd = runGenerate
	case "train":
		cmd = runTrain
	case "predict":
		cmd = runPredict
	case "serve":
		cmd = runServe
	case "-h", "-help", "--help", "help":
		_, _ = io.WriteString(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	err = cmd(ctx, cfg, args[1:], stdout, stderr)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return exitUsage
	default:
		fmt.Fprintln(stderr, "error:", err)
		return exitFailure
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags reports flag mistakes as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", errUsage, fs.Name(), err)
	}
	return nil
}

func newService(cfg *config.Config, extra ...app.Option) (*app.Service, error) {
	opts := append(app.FromConfig(cfg), app.WithLogger(logger.Get()))
	return app.New(append(opts, extra...)...)
}

func runGenerate(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("generate", stderr)
	count := fs.Int("n", cfg.RecordCount, "number of records")
	out := fs.String("out", cfg.DatasetPath, "output CSV path")
	seed := fs.Int64("seed", 0, "random seed (0 picks one from the clock)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: generate takes no arguments", errUsage)
	}

	var extra []app.Option
	if *seed != 0 {
		extra = append(extra, app.WithRand(rand.New(rand.NewSource(*seed)))) //nolint:gosec // synthetic data only
	}
	svc, err := newService(cfg, extra...)
	if err != nil {
		return err
	}
	summary, err := svc.Generate(ctx, *count, *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d records to %s\n", summary.Total, *out)
	fmt.Fprintf(stdout, "Pass: %d  Fail: %d  pass rate: %.1f%%\n", summary.Pass, summary.Fail, 100*summary.PassRate())
	return nil
}

func runTrain(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("train", stderr)
	data := fs.String("data", cfg.DatasetPath, "dataset CSV path")
	out := fs.String("model", cfg.ModelPath, "artifact output path")
	report := fs.String("report", cfg.ReportPath, "optional YAML report path")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: train takes no arguments", errUsage)
	}

	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	_, rep, err := svc.Train(ctx, *data, *out, *report)
	if err != nil {
		return err
	}
	_, _ = io.WriteString(stdout, rep.String())
	fmt.Fprintf(stdout, "\nmodel saved to %s\n", *out)
	return nil
}

func runPredict(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("predict", stderr)
	path := fs.String("model", cfg.ModelPath, "artifact path")
	proba := fs.Bool("proba", false, "also print the Pass probability")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: predict needs four values or one JSON object", errUsage)
	}

	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	p, err := svc.PredictArgs(ctx, *path, fs.Args())
	if err != nil {
		return err
	}
	if *proba {
		fmt.Fprintf(stdout, "%s %.4f\n", p.Result, p.Probability)
		return nil
	}
	fmt.Fprintln(stdout, p.Result)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, args []string, _, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	addr := fs.String("addr", cfg.Addr, "listen address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	log := logger.Get()

	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(mux)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", *addr), logger.String("model_path", svc.ModelPath()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure.
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("%w: %w", api.ErrServe, err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}
