package translate

import (
	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/Alia5/ezusb-shim/usb"
)

// rawDevice hex dumps every payload that crosses the wrapped device.
type rawDevice struct {
	usb.Device
	raw log.RawLogger
}

func (d *rawDevice) ControlRead(rType, request uint8, value, index uint16, data []byte) (int, error) {
	n, err := d.Device.ControlRead(rType, request, value, index, data)
	if n > 0 && n <= len(data) {
		d.raw.Log(false, data[:n])
	}
	return n, err
}

func (d *rawDevice) ControlWrite(rType, request uint8, value, index uint16, data []byte) (int, error) {
	d.raw.Log(true, data)
	return d.Device.ControlWrite(rType, request, value, index, data)
}

func (d *rawDevice) BulkRead(pipe uint32, data []byte) (int, error) {
	n, err := d.Device.BulkRead(pipe, data)
	if n > 0 && n <= len(data) {
		d.raw.Log(false, data[:n])
	}
	return n, err
}

func (d *rawDevice) BulkWrite(pipe uint32, data []byte) (int, error) {
	d.raw.Log(true, data)
	return d.Device.BulkWrite(pipe, data)
}
