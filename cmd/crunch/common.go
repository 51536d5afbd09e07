package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crunchdao/crunch-go/internal/config"
	"github.com/crunchdao/crunch-go/internal/downloader"
	crunchhttp "github.com/crunchdao/crunch-go/internal/http"
	"github.com/crunchdao/crunch-go/internal/mirror"
	"github.com/crunchdao/crunch-go/internal/progress"
	"github.com/crunchdao/crunch-go/internal/table"
	"github.com/crunchdao/crunch-go/pkg/calendar"
	"github.com/crunchdao/crunch-go/pkg/crunchdao"
	"github.com/crunchdao/crunch-go/pkg/scoring"
)

const defaultConfigFile = "crunch.yaml"

// commonFlags are accepted by every command and override the configuration.
type commonFlags struct {
	configFile string
	apiKey     string
	baseURL    string
	dataURL    string
	timeout    time.Duration
	logLevel   string
	logFormat  string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.configFile, "config", "", "Configuration file (default crunch.yaml if present)")
	fs.StringVar(&cf.apiKey, "api-key", "", "API key (default $CRUNCHDAO_API_KEY)")
	fs.StringVar(&cf.baseURL, "base-url", "", "API base URL")
	fs.StringVar(&cf.dataURL, "data-url", "", "Dataset base URL")
	fs.DurationVar(&cf.timeout, "timeout", 0, "Timeout waiting for response headers")
	fs.StringVar(&cf.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cf.logFormat, "log-format", "", "Log format (text, json)")
	return cf
}

// load builds the configuration from defaults, file, environment and flags,
// then sets up logging.
func (cf *commonFlags) load(override config.Config) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	path := cf.configFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	override.APIKey = cf.apiKey
	override.BaseURL = cf.baseURL
	override.DataURL = cf.dataURL
	override.Timeout = cf.timeout
	override.Log = config.LogConfig{Level: cf.logLevel, Format: cf.logFormat}
	cfg = cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := config.SetupLogging(cfg.Log, stderr); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newClient(cfg config.Config) *crunchdao.Client {
	httpOpts := crunchhttp.DefaultOptions()
	httpOpts.Timeout = cfg.Timeout

	opts := crunchdao.Options{
		BaseURL:   cfg.BaseURL,
		DataURL:   cfg.DataURL,
		APIKey:    cfg.APIKey,
		HTTP:      crunchhttp.NewClient(httpOpts),
		ChunkSize: int(cfg.ChunkSize),
	}
	if cfg.Progress {
		opts.Progress = func(file string) downloader.Progress {
			return progress.NewReporter(progress.Options{Label: file, Output: stderr})
		}
	}
	return crunchdao.New(opts)
}

// loadCalendar returns the holiday calendar from path, or a weekday
// calendar when path is empty.
func loadCalendar(path string) (calendar.Calendar, error) {
	if path == "" {
		return calendar.Weekdays{}, nil
	}
	return calendar.LoadFile(path)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(stderr, "\n[crunch] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// parseFormat validates the -format flag, printing usage on error.
func parseFormat(fs *flag.FlagSet, s string) (table.Format, bool) {
	format, err := table.ParseFormat(s)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return "", false
	}
	return format, true
}

// fail reports err and returns the matching exit code.
func fail(err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)

	var (
		subErr     *crunchdao.SubmissionError
		storageErr *mirror.StorageError
		transport  *crunchhttp.TransportError
	)
	switch {
	case errors.As(err, &subErr):
		if subErr.Hint != "" {
			fmt.Fprintf(stderr, "[crunch] %s\n", subErr.Hint)
		}
		return ExitSubmissionRejected
	case errors.Is(err, crunchdao.ErrNoAPIKey):
		fmt.Fprintln(stderr, "[crunch] Set CRUNCHDAO_API_KEY or pass -api-key")
		return ExitUnauthorized
	case errors.Is(err, crunchhttp.ErrUnauthorized), errors.Is(err, crunchhttp.ErrForbidden):
		return ExitUnauthorized
	case errors.Is(err, calendar.ErrMissingData), errors.Is(err, scoring.ErrNoTradingDay):
		return ExitCalendarError
	case errors.As(err, &storageErr):
		return ExitStorageError
	case errors.As(err, &transport):
		return ExitTransportError
	default:
		return ExitGeneralError
	}
}
