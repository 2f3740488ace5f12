package translate

import (
	"context"
	"log/slog"

	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/Alia5/ezusb-shim/usb"
)

// env carries everything a handler may use. Handlers keep no state of
// their own.
type env struct {
	dev       usb.Device
	chunkSize int
	version   ezusb.DriverVersion
	logger    *slog.Logger
}

// handlerFunc validates one request, runs its transfers and normalizes the
// outcome.
type handlerFunc func(e *env, in, out []byte) Result

const vendorToDevice = usb.RequestTypeVendor | usb.RecipientDevice

// vendorRequest serves IOCTL_Ezusb_VENDOR_REQUEST. Reads land in the input
// buffer; writes send either the inline byte or a 0,1,2,... pattern.
func vendorRequest(e *env, in, _ []byte) Result {
	var req ezusb.VendorRequestIn
	if err := req.UnmarshalBinary(in); err != nil {
		return fail(ezusb.StatusInvalidParameter)
	}

	if req.IsRead() {
		buf := in[:min(len(in), int(req.Length))]
		n, err := e.dev.ControlRead(vendorToDevice, req.Request, req.Value, req.Index, buf)
		if err != nil || n <= 0 {
			return succeed()
		}
		return succeedWith(uint32(n))
	}

	payload := make([]byte, req.Length)
	if req.Length == 1 {
		payload[0] = req.Data
	} else {
		for i := range payload {
			payload[i] = byte(i)
		}
	}
	n, err := e.dev.ControlWrite(vendorToDevice, req.Request, req.Value, req.Index, payload)
	if err != nil {
		e.logger.Debug("vendor write failed", "request", req.Request, "error", err)
		n = 0
	}
	n = max(n, 0)
	if n > 0 {
		return succeedWith(uint32(n))
	}
	return succeed()
}

// bulkRead serves IOCTL_EZUSB_BULK_READ. The transferred length is not
// reported back.
func bulkRead(e *env, in, out []byte) Result {
	var ctl ezusb.BulkTransferControl
	if err := ctl.UnmarshalBinary(in); err != nil {
		return fail(ezusb.StatusInvalidParameter)
	}
	if _, err := e.dev.BulkRead(ctl.Pipe, out); err != nil {
		e.logger.Debug("bulk read failed", "pipe", ctl.Pipe, "error", err)
		return fail(ezusb.StatusGenFailure)
	}
	return succeed()
}

// bulkWrite serves IOCTL_EZUSB_BULK_WRITE. The payload is the output
// buffer, as with the legacy driver's direct I/O.
func bulkWrite(e *env, in, out []byte) Result {
	var ctl ezusb.BulkTransferControl
	if err := ctl.UnmarshalBinary(in); err != nil {
		return fail(ezusb.StatusInvalidParameter)
	}
	if _, err := e.dev.BulkWrite(ctl.Pipe, out); err != nil {
		e.logger.Debug("bulk write failed", "pipe", ctl.Pipe, "error", err)
		return fail(ezusb.StatusGenFailure)
	}
	return succeed()
}

// pipeNoop serves IOCTL_Ezusb_RESETPIPE and IOCTL_Ezusb_ABORTPIPE, which
// have no counterpart in the transfer primitive.
func pipeNoop(*env, []byte, []byte) Result { return succeed() }

// anchorDownload serves IOCTL_EZUSB_ANCHOR_DOWNLOAD: the output buffer is
// written to internal RAM starting at the requested offset, one chunk per
// control transfer. The first short chunk aborts the download.
func anchorDownload(e *env, in, out []byte) Result {
	var ctl ezusb.AnchorDownloadControl
	if err := ctl.UnmarshalBinary(in); err != nil {
		return fail(ezusb.StatusInvalidParameter)
	}

	for c := range Chunks(int(ctl.Offset), len(out), e.chunkSize) {
		// wValue is 16 bits; offsets past 0xffff wrap like the driver's.
		n, err := e.dev.ControlWrite(vendorToDevice, ezusb.AnchorLoadInternal, uint16(c.Offset), 0, out[c.Start:c.End()])
		e.logger.Log(context.Background(), log.LevelTrace, "anchor chunk",
			"index", c.Index, "offset", c.Offset, "length", c.Length, "written", n)
		if err != nil || n != c.Length {
			e.logger.Debug("anchor download aborted",
				"index", c.Index, "offset", c.Offset, "length", c.Length, "written", n, "error", err)
			return fail(ezusb.StatusGenFailure)
		}
	}
	return succeed()
}

// vendorOrClassRequest serves IOCTL_EZUSB_VENDOR_OR_CLASS_REQUEST. The
// output buffer is the payload in both directions.
func vendorOrClassRequest(e *env, in, out []byte) Result {
	var ctl ezusb.VendorOrClassRequestControl
	if err := ctl.UnmarshalBinary(in); err != nil {
		return fail(ezusb.StatusInvalidParameter)
	}

	rType := DecodeRequestType(ctl.RequestType, ctl.Recipient)
	// wLength is 16 bits.
	payload := out[:int(uint16(len(out)))]

	var err error
	if ctl.IsRead() {
		_, err = e.dev.ControlRead(rType, ctl.Request, ctl.Value, ctl.Index, payload)
	} else {
		_, err = e.dev.ControlWrite(rType, ctl.Request, ctl.Value, ctl.Index, payload)
	}
	if err != nil {
		e.logger.Debug("vendor or class request failed", "requestType", rType, "request", ctl.Request, "error", err)
		return fail(ezusb.StatusGenFailure)
	}
	return succeed()
}

// getDriverVersion serves IOCTL_EZUSB_GET_DRIVER_VERSION. A short output
// buffer is answered with ERROR_GEN_FAILURE, as ezusb.sys returned
// STATUS_UNSUCCESSFUL there.
func getDriverVersion(e *env, _, out []byte) Result {
	if len(out) < ezusb.DriverVersionSize {
		return fail(ezusb.StatusGenFailure)
	}
	e.version.Put(out)
	return succeedWith(ezusb.DriverVersionSize)
}

// getCurrentConfig serves IOCTL_Ezusb_GET_CURRENT_CONFIG with a standard
// GET_CONFIGURATION request into the first output byte.
func getCurrentConfig(e *env, _, out []byte) Result {
	if len(out) < 1 {
		return fail(ezusb.StatusInvalidParameter)
	}
	n, err := e.dev.ControlRead(usb.RequestTypeStandard|usb.RecipientDevice, usb.ReqGetConfiguration, 0, 0, out[:1])
	if err != nil || n != 1 {
		return fail(ezusb.StatusGenFailure)
	}
	return succeed()
}
