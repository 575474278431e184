package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"randomness-scorer/internal/config"
	"randomness-scorer/internal/metrics"
	"randomness-scorer/internal/server"
	"randomness-scorer/internal/suite"

	"github.com/joho/godotenv"
)

// Exit codes for the one-shot evaluation mode. exitSequenceFailed signals a
// successful evaluation whose sequence did not pass the battery, so scripts
// can distinguish "not random" from "could not evaluate".
const (
	exitOK             = 0
	exitError          = 1
	exitUsage          = 2
	exitSequenceFailed = 3
)

var (
	loadConfigFunc     = loadConfig
	newScoreServerFunc = func(addr string, runner *suite.Runner, maxSequenceBits int, allowPublic bool, retryAfter int, rateLimitRPS int, rateLimitBurst int) (scoreServer, error) {
		return server.NewServer(addr, runner, maxSequenceBits, allowPublic, retryAfter, rateLimitRPS, rateLimitBurst)
	}
	newMetricsServerFunc = func(addr string) metricsServer {
		return metrics.NewServer(addr)
	}
	waitForShutdownFunc = waitForShutdown
	signalNotifyFunc    = signal.Notify
	logFatalfFunc       = log.Fatalf
)

type scoreServer interface {
	Start() error
	Shutdown(context.Context) error
}

type metricsServer interface {
	Start() error
	Shutdown(context.Context) error
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	if err := godotenv.Overload(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("dotenv: %v", err)
	}

	fs := flag.NewFlagSet("randomness-scorer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "evaluate the bit sequence in FILE ('-' for stdin) and exit instead of serving")
	// Parse invokes Usage itself on -h and on parse errors; the help text
	// goes to stdout as a whole.
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stdout, "Usage of %s:\n", fs.Name())
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		fs.SetOutput(stderr)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		_, _ = fmt.Fprintf(stderr, "parse flags: %v\n", err)
		return exitUsage
	}

	if fs.NArg() > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfigFunc()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return exitError
	}

	runner := buildRunner(cfg.Suite)

	if *inputPath != "" {
		return scoreOnce(runner, *inputPath, cfg.Score.MaxSequenceBits, stdin, stdout, stderr)
	}

	return serve(cfg, runner, stderr)
}

// serve runs the long-lived service: the scoring HTTP server plus, when
// enabled, the Prometheus metrics server.
func serve(cfg config.Config, runner *suite.Runner, stderr io.Writer) int {
	var metricsSrv metricsServer
	if cfg.Metrics.Enabled {
		metricsSrv = newMetricsServerFunc(cfg.Metrics.Bind)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				logFatalfFunc("metrics: failed to start server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				log.Printf("metrics: shutdown error: %v", err)
			}
		}()
	}

	scoreSrv, err := newScoreServerFunc(
		cfg.Score.Bind,
		runner,
		cfg.Score.MaxSequenceBits,
		cfg.Score.AllowPublic,
		cfg.Score.RetryAfterSec,
		cfg.Score.RateLimitRPS,
		cfg.Score.RateLimitBurst,
	)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "start score http server: %v\n", err)
		return exitError
	}

	if err := scoreSrv.Start(); err != nil {
		_, _ = fmt.Fprintf(stderr, "start score http server: %v\n", err)
		return exitError
	}

	log.Println("randomness-scorer: ready, accepting sequences...")

	waitForShutdownFunc(scoreSrv, metricsSrv)
	return exitOK
}

// scoreOnce evaluates a single sequence from a file or stdin and writes the
// battery report to stdout as JSON.
func scoreOnce(runner *suite.Runner, inputPath string, maxSequenceBits int, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	var (
		data []byte
		err  error
	)
	if inputPath == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(inputPath)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "read input: %v\n", err)
		return exitError
	}

	bitString := strings.TrimSpace(string(data))
	if maxSequenceBits > 0 && len(bitString) > maxSequenceBits {
		_, _ = fmt.Fprintf(stderr, "sequence exceeds %d bits\n", maxSequenceBits)
		return exitError
	}

	report, err := runner.Run(context.Background(), bitString)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "evaluate: %v\n", err)
		return exitError
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(struct {
		Length    int          `json:"length"`
		AllPassed bool         `json:"all_passed"`
		Report    suite.Report `json:"report"`
	}{
		Length:    len(bitString),
		AllPassed: report.AllPassed(),
		Report:    report,
	}); err != nil {
		_, _ = fmt.Fprintf(stderr, "write report: %v\n", err)
		return exitError
	}

	if !report.AllPassed() {
		return exitSequenceFailed
	}
	return exitOK
}

// loadConfig loads the scorer configuration from environment variables and
// the optional .env file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	log.Printf("environment: %s", cfg.Environment)
	return cfg, nil
}

// buildRunner maps the suite configuration onto runner options. A zero
// parallelism keeps the runner default of one worker per CPU.
func buildRunner(cfg config.Suite) *suite.Runner {
	opts := []suite.Option{
		suite.WithAlpha(cfg.Alpha),
		suite.WithTemplateParams(cfg.TemplateLength, cfg.TemplateBlocks),
	}
	if cfg.Parallelism > 0 {
		opts = append(opts, suite.WithParallelism(cfg.Parallelism))
	}
	return suite.NewRunner(opts...)
}

// waitForShutdown blocks until SIGINT or SIGTERM is received, then tears
// down the scoring server followed by the metrics server.
func waitForShutdown(scoreHTTPServer scoreServer, metricsHTTPServer metricsServer) {
	sig := make(chan os.Signal, 1)
	signalNotifyFunc(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("shutting down gracefully...")

	if scoreHTTPServer != nil {
		shutdownContext, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := scoreHTTPServer.Shutdown(shutdownContext); err != nil {
			log.Printf("score http server: shutdown error: %v", err)
		}
	}

	if metricsHTTPServer != nil {
		shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsHTTPServer.Shutdown(shutdownContext); err != nil {
			log.Printf("metrics http server: shutdown error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
