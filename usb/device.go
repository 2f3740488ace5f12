package usb

import (
	"errors"
	"sync"
)

// ErrNoDevice is returned when a transfer is attempted without an attached
// device.
var ErrNoDevice = errors.New("usb: no device attached")

// Device is the minimal transfer primitive a backend must implement.
// Every call blocks until the transfer completes. A returned error is the
// equivalent of a negative libusb status; the byte count is still
// meaningful for partial transfers.
type Device interface {
	// ControlRead issues a device-to-host control transfer. rType carries the
	// type and recipient bits; the direction bit is set by the backend.
	ControlRead(rType, request uint8, value, index uint16, data []byte) (int, error)
	// ControlWrite issues a host-to-device control transfer.
	ControlWrite(rType, request uint8, value, index uint16, data []byte) (int, error)
	// BulkRead reads up to len(data) bytes from the given pipe.
	BulkRead(pipe uint32, data []byte) (int, error)
	// BulkWrite writes data to the given pipe.
	BulkWrite(pipe uint32, data []byte) (int, error)
}

// Handle is a shared reference to the device currently served. It is owned
// by whoever attaches the device; users of the handle never close it.
type Handle struct {
	mu  sync.RWMutex
	dev Device
}

// NewHandle returns a handle with dev attached. dev may be nil.
func NewHandle(dev Device) *Handle {
	return &Handle{dev: dev}
}

// Attach replaces the attached device and returns the previous one.
func (h *Handle) Attach(dev Device) Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.dev
	h.dev = dev
	return prev
}

// Detach removes the attached device and returns it.
func (h *Handle) Detach() Device { return h.Attach(nil) }

// Device returns the attached device or nil.
func (h *Handle) Device() Device {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dev
}
