package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"garden-link/config"
	"garden-link/devices"
	"garden-link/export"
	"garden-link/logging"
	"garden-link/utils"
	"garden-link/web"
)

const (
	connectTimeout  = 5 * time.Second
	shutdownTimeout = 3 * time.Second
)

func main() {
	configPath := flag.String("config", "garden.yaml", "path to YAML config")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	level := flag.String("log-level", "", "log level, overrides log.level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *level != "" {
		cfg.Log.Level = *level
	}

	hub := logging.NewHub()
	logger, err := logging.New(cfg.Log, hub)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, hub, logger); err != nil {
		logger.Errorw("Exiting", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, hub *logging.Hub, logger *zap.SugaredLogger) error {
	logger.Infow("Garden link starting", "os", runtime.GOOS, "driver", cfg.Serial.Driver, "baud", cfg.Serial.BaudRate)

	link, err := devices.NewDeviceLink(cfg, devices.Options{Logger: logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go watchDiagnostics(ctx, link, logger.Named("diag"))

	if cfg.Server.AutoConnect {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		state, err := link.Connect(connectCtx)
		cancel()
		st := link.Status()
		logger.Infow(utils.StatusText(st.State, st.Detail), "state", state)
		if err != nil && !errors.Is(err, devices.ErrPortNotFound) {
			logger.Warnw("Auto-connect failed, use the panel to retry", "error", err)
		}
	}

	srv := web.New(link, hub, export.New(cfg.Export.Paste), logger, connectTimeout)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(cfg.Server.Addr) }()

	select {
	case err = <-errc:
	case <-ctx.Done():
		logger.Infow("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = srv.Shutdown(shutdownCtx)
		cancel()
	}

	link.Disconnect()
	return err
}

// watchDiagnostics keeps the fault queue drained and reports a summary
// when faults arrive in bursts.
func watchDiagnostics(ctx context.Context, link *devices.DeviceLink, log *zap.SugaredLogger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var decode, read int
	for {
		select {
		case f := <-link.Diagnostics():
			switch f.Kind {
			case devices.DecodeFailure:
				decode++
			case devices.ReadFailure:
				read++
			}
		case <-ticker.C:
			if decode+read > 0 {
				log.Infow("Faults in the last minute", "decode", decode, "read", read)
				decode, read = 0, 0
			}
		case <-ctx.Done():
			return
		}
	}
}
