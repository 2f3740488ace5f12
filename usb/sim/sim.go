// Package sim provides an in-memory EZ-USB device. It answers the firmware
// loader request, keeps vendor and class payloads, reports a configuration
// and loops bulk writes back on the same pipe.
package sim

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/usb"
)

const (
	// RAMSize is the size of the addressable 8051 memory.
	RAMSize = 0x10000
	// DefaultCPUCS is the CPU control and status register of the FX2.
	// AN21xx parts use 0x7F92.
	DefaultCPUCS = 0xE600
	// DefaultNumPipes is the number of bulk pipes exposed.
	DefaultNumPipes = 4
)

var (
	// ErrPipe is returned for bulk transfers on a pipe the device does not
	// have.
	ErrPipe = errors.New("sim: no such pipe")
	// ErrStall is returned for requests the device does not answer.
	ErrStall = errors.New("sim: request stalled")
)

// Options configures a simulated device. The zero value is usable.
type Options struct {
	NumPipes      int    `help:"Number of simulated bulk pipes" default:"4" env:"EZSHIM_SIM_PIPES"`
	CPUCS         uint16 `name:"cpucs" help:"Address of the CPUCS register" default:"0xe600" env:"EZSHIM_SIM_CPUCS"`
	Configuration uint8  `help:"Configuration value reported by GET_CONFIGURATION" default:"1" env:"EZSHIM_SIM_CONFIGURATION"`
}

// Device is a simulated EZ-USB device. It is safe for concurrent use.
type Device struct {
	mu      sync.Mutex
	ram     []byte
	cpucs   uint16
	running bool
	config  uint8
	stored  map[uint8][]byte
	fifos   [][]byte
	logger  *slog.Logger
}

var _ usb.Device = (*Device)(nil)

// New returns a device with its CPU held in reset, as after power on.
func New(o *Options) *Device {
	opts := Options{NumPipes: DefaultNumPipes, CPUCS: DefaultCPUCS, Configuration: 1}
	if o != nil {
		if o.NumPipes > 0 {
			opts.NumPipes = o.NumPipes
		}
		if o.CPUCS != 0 {
			opts.CPUCS = o.CPUCS
		}
		opts.Configuration = o.Configuration
	}
	d := &Device{
		ram:    make([]byte, RAMSize),
		cpucs:  opts.CPUCS,
		config: opts.Configuration,
		stored: make(map[uint8][]byte),
		fifos:  make([][]byte, opts.NumPipes),
		logger: slog.Default(),
	}
	d.ram[d.cpucs] = 0x01
	return d
}

// Memory returns a copy of n bytes of RAM starting at addr.
func (d *Device) Memory(addr uint16, n int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	end := min(int(addr)+n, RAMSize)
	return slices.Clone(d.ram[addr:end])
}

// Running reports whether the CPU is out of reset.
func (d *Device) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Close implements io.Closer. The simulator holds no resources.
func (d *Device) Close() error { return nil }

func (d *Device) ControlRead(rType, request uint8, value, _ uint16, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := usb.RequestType(rType)
	switch {
	case t.Type() == usb.RequestTypeStandard && request == usb.ReqGetConfiguration:
		if len(data) == 0 {
			return 0, nil
		}
		data[0] = d.config
		return 1, nil
	case t.Type() == usb.RequestTypeVendor && request == ezusb.AnchorLoadInternal:
		return copy(data, d.ram[value:]), nil
	case t.Type() == usb.RequestTypeVendor, t.Type() == usb.RequestTypeClass:
		return copy(data, d.stored[request]), nil
	}
	return 0, ErrStall
}

func (d *Device) ControlWrite(rType, request uint8, value, _ uint16, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := usb.RequestType(rType)
	switch {
	case t.Type() == usb.RequestTypeStandard && request == usb.ReqSetConfiguration:
		d.config = uint8(value)
		return 0, nil
	case t.Type() == usb.RequestTypeVendor && request == ezusb.AnchorLoadInternal:
		n := copy(d.ram[value:], data)
		if d.cpucs >= value && int(d.cpucs) < int(value)+n {
			d.running = d.ram[d.cpucs]&0x01 == 0
			d.logger.Debug("sim cpu reset", "held", !d.running)
		}
		return n, nil
	case t.Type() == usb.RequestTypeVendor, t.Type() == usb.RequestTypeClass:
		d.stored[request] = slices.Clone(data)
		return len(data), nil
	}
	return 0, ErrStall
}

func (d *Device) BulkRead(pipe uint32, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(pipe) >= len(d.fifos) {
		return 0, ErrPipe
	}
	n := copy(data, d.fifos[pipe])
	d.fifos[pipe] = d.fifos[pipe][n:]
	return n, nil
}

func (d *Device) BulkWrite(pipe uint32, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(pipe) >= len(d.fifos) {
		return 0, ErrPipe
	}
	d.fifos[pipe] = append(d.fifos[pipe], data...)
	return len(data), nil
}
