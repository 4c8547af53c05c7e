package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/broadside/server/internal/config"
	"github.com/broadside/server/internal/dispatcher"
	"github.com/broadside/server/internal/handlers"
	"github.com/broadside/server/internal/influx"
	"github.com/broadside/server/internal/logging"
	"github.com/broadside/server/internal/match"
	"github.com/broadside/server/internal/monitor"
	intOtel "github.com/broadside/server/internal/otel"
	"github.com/broadside/server/internal/rooms"
	"github.com/broadside/server/internal/server"
	"github.com/broadside/server/internal/storage"
	"github.com/broadside/server/internal/users"
	"github.com/broadside/server/pkg/protocol"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	ServerName string = "broadside"
)

func main() {
	configDir := pflag.String("config-dir", ".", "directory containing "+config.FileName)
	pflag.String("log-level", "", "override logLevel (DEBUG, INFO, WARN, ERROR)")
	pflag.Int("port", 0, "override server.port")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", ServerName, CurrentVersion, BuildDate)
		return
	}

	// flags only win when set on the command line
	_ = viper.BindPFlag("logLevel", pflag.Lookup("log-level"))
	_ = viper.BindPFlag("server.port", pflag.Lookup("port"))

	if err := run(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ServerName, err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	sessionStart := time.Now()

	if err := config.Load(configDir); err != nil {
		return err
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	logFilePath := logging.LogFilePath(logsDir, ServerName, sessionStart)
	// keep one previous log around
	if _, err := os.Stat(logFilePath); err == nil {
		os.Rename(logFilePath, logFilePath+".old")
	}
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	otelProvider, err := intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), logFile))
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}

	// live components read by the log context; set once they exist
	var (
		liveHub      atomic.Pointer[server.Hub]
		liveRegistry atomic.Pointer[match.Registry]
	)
	logContext := func() []slog.Attr {
		var attrs []slog.Attr
		if h := liveHub.Load(); h != nil {
			attrs = append(attrs, slog.Int("clients", h.Len()))
		}
		if r := liveRegistry.Load(); r != nil {
			attrs = append(attrs, slog.Int("matches", r.Len()))
		}
		return attrs
	}

	logLevel := config.GetString("logLevel")
	setupOpts := []logging.SetupOption{logging.WithContext(logContext)}
	var extra []io.Writer
	if config.GetBool("graylog.enabled") {
		gelfWriter, err := logging.NewGraylogWriter(config.GetString("graylog.address"), ServerName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "graylog disabled: %v\n", err)
		} else {
			defer gelfWriter.Close()
			setupOpts = append(setupOpts, logging.WithGraylog(gelfWriter))
			extra = append(extra, gelfWriter)
		}
	}

	slogManager := logging.NewSlogManager()
	slogManager.Setup(io.MultiWriter(os.Stdout, logFile), logLevel, otelProvider.LoggerProvider(), setupOpts...)
	logger := slogManager.Logger()
	zlog := logging.NewZerolog(logLevel, logFile, extra...)

	logger.Info("Starting",
		"version", CurrentVersion,
		"buildDate", BuildDate,
		"configDir", configDir,
		"logFile", logFilePath)

	backend, err := storage.NewBackend(config.GetStorageConfig(), storage.Dependencies{
		Logger:   logger.With("component", "storage"),
		DBLogger: zlog,
	})
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
		if e, ok := backend.(storage.Exportable); ok && e.ExportedFilePath() != "" {
			logger.Info("Match history exported", "path", e.ExportedFilePath())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	influxManager := influx.NewManager(config.GetInfluxConfig(), zlog,
		filepath.Join(logsDir, fmt.Sprintf("influx_backup.%s.log.gz", sessionStart.Format("20060102_150405"))))
	if err := influxManager.Connect(ctx); err != nil {
		logger.Error("Failed to set up InfluxDB", "error", err)
	}
	defer influxManager.Close()

	codec, err := protocol.NewCodec(config.GetServerConfig().Codec)
	if err != nil {
		return err
	}

	userService := users.NewService(backend, logger.With("component", "users"))
	roomService := rooms.NewService()
	registry, err := match.NewRegistry(match.Dependencies{
		Wins:     userService,
		History:  backend,
		Observer: influxManager,
		Logger:   logger.With("component", "match"),
	}, config.GetGameConfig().Width, config.GetGameConfig().Height)
	if err != nil {
		return fmt.Errorf("init match registry: %w", err)
	}
	liveRegistry.Store(registry)

	d, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	if err != nil {
		return fmt.Errorf("init dispatcher: %w", err)
	}

	hub := server.NewHub()
	liveHub.Store(hub)
	handlerManager := handlers.NewManager(handlers.Dependencies{
		Users:   userService,
		Rooms:   roomService,
		Matches: registry,
		Hub:     hub,
		Codec:   codec,
		Logger:  logger.With("component", "handlers"),
	})
	handlerManager.RegisterHandlers(d)

	srv := server.New(config.GetServerConfig(), server.Dependencies{
		Dispatcher:   d,
		Hub:          hub,
		Codec:        codec,
		OnDisconnect: handlerManager.Disconnect,
		Status: func() map[string]any {
			return map[string]any{
				"version": CurrentVersion,
				"rooms":   roomService.Len(),
				"matches": registry.Len(),
			}
		},
		Logger: logger.With("component", "server"),
	})

	monitorCfg := config.GetMonitorConfig()
	monitorService := monitor.NewService(monitor.Dependencies{
		Clients:    hub,
		Rooms:      roomService,
		Matches:    registry,
		Backend:    backend,
		Influx:     influxManager,
		ServerName: config.GetString("influx.serverTag"),
		StatusPath: filepath.Join(logsDir, "status.json"),
		Interval:   monitorCfg.Interval,
		Logger:     logger.With("component", "monitor"),
	})
	if monitorCfg.Enabled {
		if err := monitorService.Start(); err != nil {
			logger.Error("Failed to start status monitor", "error", err)
		}
	}

	serveErr := srv.ListenAndServe(ctx)
	if serveErr != nil {
		logger.Error("Server stopped", "error", serveErr)
	}

	logger.Info("Shutting down")
	monitorService.Stop()
	d.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := slogManager.Flush(shutdownCtx); err != nil {
		logger.Error("Failed to flush logs", "error", err)
	}
	if err := otelProvider.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
	}

	return serveErr
}
