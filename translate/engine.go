// Package translate turns EZ-USB driver requests into primitive USB
// transfers.
//
// An Engine looks the IOCTL code up in a fixed handler table, validates the
// request buffers against the code's structure size, issues the transfers on
// the attached device and reports a single status plus an optional byte
// count, the way ezusb.sys answered DeviceIoControl.
//
// The engine does no locking. Callers serialize dispatches against a device.
package translate

import (
	"context"
	"log/slog"
	"time"

	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/Alia5/ezusb-shim/usb"
)

// Invoker runs one driver request. The engine and the remote client both
// implement it; err reports transport problems only, request failures are
// carried in the Result.
type Invoker interface {
	Invoke(ctx context.Context, code ezusb.IOCTL, in, out []byte) (Result, error)
}

// Observer is notified after every dispatch.
type Observer interface {
	ObserveDispatch(code ezusb.IOCTL, res Result, elapsed time.Duration)
}

// Engine dispatches driver requests to the device attached to its handle.
type Engine struct {
	handle    *usb.Handle
	cfg       Config
	logger    *slog.Logger
	rawLogger log.RawLogger
	observer  Observer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the logger for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRawLogger records every transfer payload.
func WithRawLogger(raw log.RawLogger) Option {
	return func(e *Engine) { e.rawLogger = raw }
}

// WithObserver reports every dispatch to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New creates an engine serving the device attached to handle. The handle
// stays owned by the caller.
func New(handle *usb.Handle, opts ...Option) *Engine {
	e := &Engine{
		handle: handle,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.cfg.ChunkSize <= 0 {
		e.cfg.ChunkSize = DefaultChunkSize
	}
	if e.cfg.UnknownIOCTL == "" {
		e.cfg.UnknownIOCTL = UnknownReject
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Dispatch runs one request. in and out are the caller's buffers; they are
// only used for the duration of the call.
func (e *Engine) Dispatch(code ezusb.IOCTL, in, out []byte) Result {
	start := time.Now()
	res := e.dispatch(code, in, out)
	elapsed := time.Since(start)

	e.logger.Debug("ioctl",
		"code", code,
		"in", len(in),
		"out", len(out),
		"status", res.Status,
		"bytes", res.BytesReturned,
		"hasBytes", res.HasBytes,
		"elapsed", elapsed,
	)
	if e.observer != nil {
		e.observer.ObserveDispatch(code, res, elapsed)
	}
	return res
}

func (e *Engine) dispatch(code ezusb.IOCTL, in, out []byte) Result {
	h, ok := handlers[code]
	if !ok {
		if e.cfg.UnknownIOCTL == UnknownIgnore {
			return succeed()
		}
		return fail(ezusb.StatusInvalidParameter)
	}

	dev := e.handle.Device()
	if dev == nil {
		e.logger.Warn("ioctl without attached device", "code", code)
		return fail(ezusb.StatusGenFailure)
	}
	if e.rawLogger != nil {
		dev = &rawDevice{Device: dev, raw: e.rawLogger}
	}

	return h(&env{
		dev:       dev,
		chunkSize: e.cfg.ChunkSize,
		version:   e.cfg.DriverVersion,
		logger:    e.logger,
	}, in, out)
}

// DispatchIOCTL is the DeviceIoControl shaped entry point. The declared
// lengths are clamped to the backing slices once, so no handler can reach
// past either buffer. bytesReturned, when non-nil, is only written if the
// request reports a count.
func (e *Engine) DispatchIOCTL(code uint32, in []byte, inLen uint32, out []byte, outLen uint32, bytesReturned *uint32) ezusb.Status {
	res := e.Dispatch(ezusb.IOCTL(code), view(in, inLen), view(out, outLen))
	if bytesReturned != nil && res.HasBytes {
		*bytesReturned = res.BytesReturned
	}
	return res.Status
}

// Invoke implements Invoker. The engine has no suspension point of its own,
// so ctx is not consulted.
func (e *Engine) Invoke(_ context.Context, code ezusb.IOCTL, in, out []byte) (Result, error) {
	return e.Dispatch(code, in, out), nil
}

func view(b []byte, n uint32) []byte {
	if uint64(n) < uint64(len(b)) {
		return b[:n:n]
	}
	return b[:len(b):len(b)]
}
