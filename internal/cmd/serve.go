package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/Alia5/ezusb-shim/internal/metrics"
	"github.com/Alia5/ezusb-shim/internal/server/ioctl"
	"github.com/Alia5/ezusb-shim/translate"
	"github.com/Alia5/ezusb-shim/usb"
)

type Serve struct {
	Device          Device             `embed:""`
	Engine          translate.Config   `embed:"" prefix:"engine."`
	IoctlServer     ioctl.ServerConfig `embed:"" prefix:"ioctl."`
	MetricsEndpoint metrics.Config     `embed:"" prefix:"metrics."`
}

// Run is called by Kong when the serve command is executed.
func (s *Serve) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := notifyContext()
	defer stop()
	return s.StartServer(ctx, logger, rawLogger)
}

// StartServer opens the device and serves it until ctx is done or one of
// the listeners fails.
func (s *Serve) StartServer(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	dev, closer, err := s.Device.Open(logger)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	handle := usb.NewHandle(dev)
	defer func() {
		handle.Detach()
		if err := closer.Close(); err != nil {
			logger.Warn("closing device failed", "error", err)
		}
	}()

	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := translate.New(handle,
		translate.WithConfig(s.Engine),
		translate.WithLogger(logger),
		translate.WithRawLogger(rawLogger),
		translate.WithObserver(metrics.NewObserver(r)),
	)
	logger.Info("Starting ezshim IOCTL server",
		"addr", s.IoctlServer.Addr,
		"unknownIoctl", engine.Config().UnknownIOCTL,
		"driverVersion", engine.Config().DriverVersion,
	)

	var g run.Group
	{
		srv := ioctl.New(s.IoctlServer, engine, logger, rawLogger)
		g.Add(srv.ListenAndServe, func(error) {
			_ = srv.Close()
		})
	}

	if s.MetricsEndpoint.Addr != "" {
		// Run the HTTP server.
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			if handle.Device() == nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		mux.Handle("/metrics", promhttp.HandlerFor(r, promhttp.HandlerOpts{}))
		l, err := net.Listen("tcp", s.MetricsEndpoint.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.MetricsEndpoint.Addr, err)
		}
		logger.Info("Metrics endpoint listening", "addr", l.Addr().String())

		g.Add(func() error {
			if err := http.Serve(l, mux); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("metrics server exited unexpectedly: %w", err)
			}
			return nil
		}, func(error) {
			_ = l.Close()
		})
	}

	{
		// Exit gracefully once ctx is done.
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			<-ctx.Done()
			logger.Info("Shutting down")
			return nil
		}, func(error) {
			cancel()
		})
	}

	return g.Run()
}
