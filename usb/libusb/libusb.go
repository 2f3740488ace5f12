// Package libusb serves the transfer primitive from a real device through
// libusb.
package libusb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/gousb"

	"github.com/Alia5/ezusb-shim/usb"
)

// Config selects and sets up the device.
type Config struct {
	VID            uint16        `name:"vid" help:"USB vendor ID of the device" default:"0x04b4" env:"EZSHIM_USB_VID"`
	PID            uint16        `name:"pid" help:"USB product ID of the device" default:"0x8613" env:"EZSHIM_USB_PID"`
	Config         int           `help:"Configuration number, 0 keeps the active one" default:"0" env:"EZSHIM_USB_CONFIG"`
	Interface      int           `help:"Interface number carrying the pipes" default:"0" env:"EZSHIM_USB_INTERFACE"`
	AltSetting     int           `help:"Alternate setting of the interface" default:"0" env:"EZSHIM_USB_ALT_SETTING"`
	ControlTimeout time.Duration `help:"Control transfer timeout" default:"1s" env:"EZSHIM_USB_CONTROL_TIMEOUT"`
	BulkTimeout    time.Duration `help:"Bulk transfer timeout, 0 waits forever" default:"5s" env:"EZSHIM_USB_BULK_TIMEOUT"`
}

type pipe struct {
	desc gousb.EndpointDesc
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint
}

// Device is an opened libusb device with its interface claimed.
type Device struct {
	cfg    Config
	logger *slog.Logger

	ctx   *gousb.Context
	dev   *gousb.Device
	uc    *gousb.Config
	intf  *gousb.Interface
	pipes []pipe
}

var _ usb.Device = (*Device)(nil)

// Open finds the first device matching cfg and claims its interface. Pipe
// numbers index the interface endpoints in address order, as ezusb.sys
// numbered them from the interface descriptor.
func Open(cfg Config, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Device{cfg: cfg, logger: logger, ctx: gousb.NewContext()}

	dev, err := d.ctx.OpenDeviceWithVIDPID(gousb.ID(cfg.VID), gousb.ID(cfg.PID))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open %04x:%04x: %w", cfg.VID, cfg.PID, err)
	}
	if dev == nil {
		d.Close()
		return nil, fmt.Errorf("open %04x:%04x: %w", cfg.VID, cfg.PID, usb.ErrNoDevice)
	}
	d.dev = dev
	d.dev.ControlTimeout = cfg.ControlTimeout
	if err := d.dev.SetAutoDetach(true); err != nil {
		logger.Warn("cannot enable kernel driver auto detach", "error", err)
	}

	cfgNum := cfg.Config
	if cfgNum == 0 {
		if cfgNum, err = d.dev.ActiveConfigNum(); err != nil {
			d.Close()
			return nil, fmt.Errorf("active config: %w", err)
		}
	}
	if d.uc, err = d.dev.Config(cfgNum); err != nil {
		d.Close()
		return nil, fmt.Errorf("config %d: %w", cfgNum, err)
	}
	if d.intf, err = d.uc.Interface(cfg.Interface, cfg.AltSetting); err != nil {
		d.Close()
		return nil, fmt.Errorf("interface %d alt %d: %w", cfg.Interface, cfg.AltSetting, err)
	}

	for _, desc := range OrderPipes(d.intf.Setting.Endpoints) {
		p := pipe{desc: desc}
		if desc.Direction == gousb.EndpointDirectionIn {
			p.in, err = d.intf.InEndpoint(desc.Number)
		} else {
			p.out, err = d.intf.OutEndpoint(desc.Number)
		}
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("endpoint %s: %w", desc.Address, err)
		}
		d.pipes = append(d.pipes, p)
	}

	logger.Info("usb device opened",
		"vid", fmt.Sprintf("%04x", cfg.VID),
		"pid", fmt.Sprintf("%04x", cfg.PID),
		"config", cfgNum,
		"interface", cfg.Interface,
		"pipes", len(d.pipes),
	)
	return d, nil
}

// OrderPipes returns the endpoints sorted by address.
func OrderPipes(endpoints map[gousb.EndpointAddress]gousb.EndpointDesc) []gousb.EndpointDesc {
	out := make([]gousb.EndpointDesc, 0, len(endpoints))
	for _, ep := range endpoints {
		out = append(out, ep)
	}
	slices.SortFunc(out, func(a, b gousb.EndpointDesc) int { return int(a.Address) - int(b.Address) })
	return out
}

// Close releases the interface, config, device and libusb context.
func (d *Device) Close() error {
	var errs []error
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	if d.uc != nil {
		errs = append(errs, d.uc.Close())
		d.uc = nil
	}
	if d.dev != nil {
		errs = append(errs, d.dev.Close())
		d.dev = nil
	}
	if d.ctx != nil {
		errs = append(errs, d.ctx.Close())
		d.ctx = nil
	}
	return errors.Join(errs...)
}

func (d *Device) ControlRead(rType, request uint8, value, index uint16, data []byte) (int, error) {
	return d.dev.Control(gousb.ControlIn|rType, request, value, index, data)
}

func (d *Device) ControlWrite(rType, request uint8, value, index uint16, data []byte) (int, error) {
	return d.dev.Control(gousb.ControlOut|rType, request, value, index, data)
}

func (d *Device) BulkRead(pipe uint32, data []byte) (int, error) {
	p, err := d.pipe(pipe)
	if err != nil {
		return 0, err
	}
	if p.in == nil {
		return 0, fmt.Errorf("pipe %d (%s) is not an IN endpoint", pipe, p.desc.Address)
	}
	ctx, cancel := d.transferContext()
	defer cancel()
	return p.in.ReadContext(ctx, data)
}

func (d *Device) BulkWrite(pipe uint32, data []byte) (int, error) {
	p, err := d.pipe(pipe)
	if err != nil {
		return 0, err
	}
	if p.out == nil {
		return 0, fmt.Errorf("pipe %d (%s) is not an OUT endpoint", pipe, p.desc.Address)
	}
	ctx, cancel := d.transferContext()
	defer cancel()
	return p.out.WriteContext(ctx, data)
}

func (d *Device) pipe(n uint32) (pipe, error) {
	if int(n) >= len(d.pipes) {
		return pipe{}, fmt.Errorf("pipe %d: interface has %d endpoints", n, len(d.pipes))
	}
	return d.pipes[n], nil
}

func (d *Device) transferContext() (context.Context, context.CancelFunc) {
	if d.cfg.BulkTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d.cfg.BulkTimeout)
}
