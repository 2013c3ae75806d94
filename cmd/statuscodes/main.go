package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	statuscodes "github.com/always-cache/status-codes"
	"github.com/always-cache/status-codes/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	videoFlag          string
	baseURLFlag        string
	storeFlag          string
	dbFilenameFlag     string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to YAML config file")
	flag.IntVar(&portFlag, "port", statuscodes.DefaultPort, "Port to listen on (env PORT)")
	flag.StringVar(&videoFlag, "video", statuscodes.DefaultVideoPath, "Video file served by /video")
	flag.StringVar(&baseURLFlag, "base-url", "", "Base URL used in links to other endpoints")
	flag.StringVar(&storeFlag, "store", "memory", "Resource version store to use (memory or sqlite)")
	flag.StringVar(&dbFilenameFlag, "db", "memory", "Version DB file name for the sqlite store (use 'memory' for in-memory db)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	config, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}

	versions, closeVersions, err := openVersions(storeFlag, dbFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open version store")
	}
	config.Versions = versions

	err = run(config)
	// log.Fatal exits without running deferred calls
	if closeErr := closeVersions(); closeErr != nil {
		log.Error().Err(closeErr).Msg("Could not close version store")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// openVersions opens the resource version store selected by name.
// The returned function closes it.
func openVersions(name, dbFilename string) (store.VersionProvider, func() error, error) {
	switch name {
	case "memory":
		return store.NewMemVersions(), func() error { return nil }, nil
	case "sqlite":
		if dbFilename == "memory" {
			dbFilename = "file::memory:?cache=shared"
		}
		versions, err := store.NewSQLiteVersions(dbFilename)
		if err != nil {
			return nil, nil, err
		}
		return versions, versions.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported version store: %s", name)
	}
}

// loadConfig layers the config file, the PORT environment variable and explicitly set flags,
// in increasing order of precedence.
func loadConfig() (statuscodes.Config, error) {
	config := statuscodes.DefaultConfig()
	if configFilenameFlag != "" {
		fileConfig, err := statuscodes.ReadConfig(configFilenameFlag)
		if err != nil {
			return config, fmt.Errorf("reading %s: %w", configFilenameFlag, err)
		}
		config = fileConfig
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		port, err := strconv.Atoi(envPort)
		if err != nil {
			return config, fmt.Errorf("invalid PORT %q: %w", envPort, err)
		}
		config.Port = port
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			config.Port = portFlag
		case "video":
			config.VideoPath = videoFlag
		case "base-url":
			config.BaseURL = baseURLFlag
		}
	})
	return config, nil
}

func run(config statuscodes.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := statuscodes.New(config)
	defer handler.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", handler.Config().Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("Server is running on port %d", handler.Config().Port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		// delayed endpoints hold requests for 10 seconds
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(timeout)
	})
	return g.Wait()
}
