package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/Alia5/ezusb-shim/client"
	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/Alia5/ezusb-shim/translate"
	"github.com/Alia5/ezusb-shim/usb"
	"github.com/Alia5/ezusb-shim/usb/libusb"
	"github.com/Alia5/ezusb-shim/usb/sim"
)

// Device selects the backend serving the transfer primitive.
type Device struct {
	Sim        bool          `help:"Use the simulated device instead of real hardware" env:"EZSHIM_SIM"`
	SimOptions sim.Options   `embed:"" prefix:"simulator."`
	USB        libusb.Config `embed:"" prefix:"usb."`
}

// Open returns the selected device and what must be closed once it is no
// longer used.
func (d *Device) Open(logger *slog.Logger) (usb.Device, io.Closer, error) {
	if d.Sim {
		logger.Info("Using simulated EZ-USB device", "pipes", d.SimOptions.NumPipes)
		dev := sim.New(&d.SimOptions)
		return dev, dev, nil
	}
	dev, err := libusb.Open(d.USB, logger)
	if err != nil {
		return nil, nil, err
	}
	return dev, dev, nil
}

// Target is where one-shot commands send their requests: a running server
// when Remote is set, otherwise a locally opened device.
type Target struct {
	Remote string           `help:"Address of an ezshim server; empty opens the device directly" env:"EZSHIM_REMOTE"`
	Device Device           `embed:""`
	Engine translate.Config `embed:"" prefix:"engine."`
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Invoker opens the target.
func (t *Target) Invoker(logger *slog.Logger, rawLogger log.RawLogger) (translate.Invoker, io.Closer, error) {
	if t.Remote != "" {
		c := client.New(t.Remote)
		return c, c, nil
	}
	dev, closer, err := t.Device.Open(logger)
	if err != nil {
		return nil, nil, err
	}
	handle := usb.NewHandle(dev)
	engine := translate.New(handle,
		translate.WithConfig(t.Engine),
		translate.WithLogger(logger),
		translate.WithRawLogger(rawLogger),
	)
	return engine, closerFunc(func() error {
		handle.Detach()
		return closer.Close()
	}), nil
}

// withInvoker runs fn against the opened target and closes it afterwards.
func (t *Target) withInvoker(logger *slog.Logger, rawLogger log.RawLogger, fn func(ctx context.Context, inv translate.Invoker) error) error {
	inv, closer, err := t.Invoker(logger, rawLogger)
	if err != nil {
		return err
	}
	defer closer.Close()
	ctx, stop := notifyContext()
	defer stop()
	return fn(ctx, inv)
}
