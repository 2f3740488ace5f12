package client

import (
	"context"
	"fmt"

	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/translate"
)

// StatusError is returned by the typed helpers when a request completes
// with a failure status.
type StatusError struct {
	Code   ezusb.IOCTL
	Status ezusb.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Status)
}

func call(ctx context.Context, inv translate.Invoker, code ezusb.IOCTL, in, out []byte) (translate.Result, error) {
	res, err := inv.Invoke(ctx, code, in, out)
	if err != nil {
		return res, err
	}
	if !res.OK() {
		return res, &StatusError{Code: code, Status: res.Status}
	}
	return res, nil
}

// DriverVersion queries the reported driver version.
func DriverVersion(ctx context.Context, inv translate.Invoker) (ezusb.DriverVersion, error) {
	var v ezusb.DriverVersion
	out := make([]byte, ezusb.DriverVersionSize)
	if _, err := call(ctx, inv, ezusb.IoctlGetDriverVersion, nil, out); err != nil {
		return v, err
	}
	err := v.UnmarshalBinary(out)
	return v, err
}

// CurrentConfig returns the active configuration value of the device.
func CurrentConfig(ctx context.Context, inv translate.Invoker) (uint8, error) {
	out := make([]byte, 1)
	if _, err := call(ctx, inv, ezusb.IoctlGetCurrentConfig, nil, out); err != nil {
		return 0, err
	}
	return out[0], nil
}

// VendorRead issues a vendor read of up to length bytes. The result is
// limited to what the request buffer can hold, as with the legacy driver.
func VendorRead(ctx context.Context, inv translate.Invoker, request uint8, value, index, length uint16) ([]byte, error) {
	req := ezusb.VendorRequestIn{Request: request, Value: value, Index: index, Length: length, Direction: ezusb.DirDeviceToHost}
	in, _ := req.MarshalBinary()
	if int(length) > len(in) {
		in = append(in, make([]byte, int(length)-len(in))...)
	}
	res, err := call(ctx, inv, ezusb.IoctlVendorRequest, in, nil)
	if err != nil {
		return nil, err
	}
	n, ok := res.Bytes()
	if !ok {
		return nil, nil
	}
	return in[:min(int(n), len(in))], nil
}

// VendorWrite issues a vendor write. A one byte write sends data; longer
// writes send the driver's 0,1,2,... pattern. It returns the reported
// count, 0 when none was reported.
func VendorWrite(ctx context.Context, inv translate.Invoker, request uint8, value, index, length uint16, data byte) (uint32, error) {
	req := ezusb.VendorRequestIn{Request: request, Value: value, Index: index, Length: length, Direction: ezusb.DirHostToDevice, Data: data}
	in, _ := req.MarshalBinary()
	res, err := call(ctx, inv, ezusb.IoctlVendorRequest, in, nil)
	if err != nil {
		return 0, err
	}
	return res.BytesReturned, nil
}

// BulkRead fills data from the given pipe.
func BulkRead(ctx context.Context, inv translate.Invoker, pipe uint32, data []byte) error {
	ctl := ezusb.BulkTransferControl{Pipe: pipe}
	in, _ := ctl.MarshalBinary()
	_, err := call(ctx, inv, ezusb.IoctlBulkRead, in, data)
	return err
}

// BulkWrite sends data on the given pipe.
func BulkWrite(ctx context.Context, inv translate.Invoker, pipe uint32, data []byte) error {
	ctl := ezusb.BulkTransferControl{Pipe: pipe}
	in, _ := ctl.MarshalBinary()
	_, err := call(ctx, inv, ezusb.IoctlBulkWrite, in, data)
	return err
}

// AnchorDownload writes data to internal RAM at offset.
func AnchorDownload(ctx context.Context, inv translate.Invoker, offset uint16, data []byte) error {
	ctl := ezusb.AnchorDownloadControl{Offset: offset}
	in, _ := ctl.MarshalBinary()
	_, err := call(ctx, inv, ezusb.IoctlAnchorDownload, in, data)
	return err
}

// VendorOrClass issues a vendor or class request with data as payload in
// either direction.
func VendorOrClass(ctx context.Context, inv translate.Invoker, ctl ezusb.VendorOrClassRequestControl, data []byte) error {
	in, _ := ctl.MarshalBinary()
	_, err := call(ctx, inv, ezusb.IoctlVendorOrClassRequest, in, data)
	return err
}

// ResetPipe and AbortPipe are accepted for compatibility and do nothing.
func ResetPipe(ctx context.Context, inv translate.Invoker, pipe uint32) error {
	ctl := ezusb.BulkTransferControl{Pipe: pipe}
	in, _ := ctl.MarshalBinary()
	_, err := call(ctx, inv, ezusb.IoctlResetPipe, in, nil)
	return err
}

func AbortPipe(ctx context.Context, inv translate.Invoker, pipe uint32) error {
	ctl := ezusb.BulkTransferControl{Pipe: pipe}
	in, _ := ctl.MarshalBinary()
	_, err := call(ctx, inv, ezusb.IoctlAbortPipe, in, nil)
	return err
}
