package translate

import "github.com/Alia5/ezusb-shim/ezusb"

// handlers is built once and never modified.
var handlers = map[ezusb.IOCTL]handlerFunc{
	ezusb.IoctlVendorRequest:        vendorRequest,
	ezusb.IoctlGetCurrentConfig:     getCurrentConfig,
	ezusb.IoctlBulkRead:             bulkRead,
	ezusb.IoctlBulkWrite:            bulkWrite,
	ezusb.IoctlResetPipe:            pipeNoop,
	ezusb.IoctlAbortPipe:            pipeNoop,
	ezusb.IoctlAnchorDownload:       anchorDownload,
	ezusb.IoctlVendorOrClassRequest: vendorOrClassRequest,
	ezusb.IoctlGetDriverVersion:     getDriverVersion,
}

// Supported reports whether code has a handler.
func Supported(code ezusb.IOCTL) bool {
	_, ok := handlers[code]
	return ok
}
