// Package ezusb describes the control protocol of the legacy EZ-USB driver:
// IOCTL codes, request structures and the status values handed back to
// callers.
package ezusb

import "fmt"

// Windows CTL_CODE building blocks.
const (
	fileDeviceUnknown = 0x00000022
	fileAnyAccess     = 0

	methodBuffered  = 0
	methodInDirect  = 1
	methodOutDirect = 2

	// ioctlIndex is the first function number used by ezusb.sys.
	ioctlIndex = 0x0800
)

// IOCTL is a driver request code as passed to DeviceIoControl.
type IOCTL uint32

// Supported request codes, CTL_CODE(FILE_DEVICE_UNKNOWN, function, method,
// FILE_ANY_ACCESS).
const (
	IoctlVendorRequest        IOCTL = fileDeviceUnknown<<16 | fileAnyAccess<<14 | (ioctlIndex+5)<<2 | methodBuffered
	IoctlGetCurrentConfig     IOCTL = fileDeviceUnknown<<16 | fileAnyAccess<<14 | (ioctlIndex+6)<<2 | methodBuffered
	IoctlResetPipe            IOCTL = fileDeviceUnknown<<16 | fileAnyAccess<<14 | (ioctlIndex+13)<<2 | methodInDirect
	IoctlAbortPipe            IOCTL = fileDeviceUnknown<<16 | fileAnyAccess<<14 | (ioctlIndex+15)<<2 | methodInDirect
	IoctlBulkRead             IOCTL = fileDeviceUnknown<<16 | fileAnyAccess<<14 | (ioctlIndex+19)<<2 | methodOutDirect
	IoctlBulkWrite            IOCTL = fileDeviceUnknown<<16 | fileAnyAccess<<14 | (ioctlIndex+20)<<2 | methodInDirect
	IoctlVendorOrClassRequest IOCTL = fileDeviceUnknown<<16 | fileAnyAccess<<14 | (ioctlIndex+22)<<2 | methodInDirect
	IoctlAnchorDownload       IOCTL = fileDeviceUnknown<<16 | fileAnyAccess<<14 | (ioctlIndex+27)<<2 | methodInDirect
	IoctlGetDriverVersion     IOCTL = fileDeviceUnknown<<16 | fileAnyAccess<<14 | (ioctlIndex+29)<<2 | methodBuffered
)

var ioctlNames = map[IOCTL]string{
	IoctlVendorRequest:        "IOCTL_Ezusb_VENDOR_REQUEST",
	IoctlGetCurrentConfig:     "IOCTL_Ezusb_GET_CURRENT_CONFIG",
	IoctlResetPipe:            "IOCTL_Ezusb_RESETPIPE",
	IoctlAbortPipe:            "IOCTL_Ezusb_ABORTPIPE",
	IoctlBulkRead:             "IOCTL_EZUSB_BULK_READ",
	IoctlBulkWrite:            "IOCTL_EZUSB_BULK_WRITE",
	IoctlVendorOrClassRequest: "IOCTL_EZUSB_VENDOR_OR_CLASS_REQUEST",
	IoctlAnchorDownload:       "IOCTL_EZUSB_ANCHOR_DOWNLOAD",
	IoctlGetDriverVersion:     "IOCTL_EZUSB_GET_DRIVER_VERSION",
}

// String returns the driver header name of the code, or the code in hex
// when it is not part of the protocol.
func (c IOCTL) String() string {
	if n, ok := ioctlNames[c]; ok {
		return n
	}
	return fmt.Sprintf("IOCTL(0x%08x)", uint32(c))
}

// Known reports whether c is one of the supported request codes.
func (c IOCTL) Known() bool {
	_, ok := ioctlNames[c]
	return ok
}

// Function returns the function number encoded in the code.
func (c IOCTL) Function() uint32 { return (uint32(c) >> 2) & 0xfff }

// IOCTLs returns every supported request code in function order.
func IOCTLs() []IOCTL {
	return []IOCTL{
		IoctlVendorRequest,
		IoctlGetCurrentConfig,
		IoctlResetPipe,
		IoctlAbortPipe,
		IoctlBulkRead,
		IoctlBulkWrite,
		IoctlVendorOrClassRequest,
		IoctlAnchorDownload,
		IoctlGetDriverVersion,
	}
}
