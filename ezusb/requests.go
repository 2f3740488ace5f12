package ezusb

import (
	"encoding/binary"
	"io"
)

// Structure sizes as laid out by the driver header (natural alignment).
const (
	VendorRequestInSize             = 10
	BulkTransferControlSize         = 4
	AnchorDownloadControlSize       = 2
	VendorOrClassRequestControlSize = 10
	DriverVersionSize               = 6
)

// AnchorLoadInternal is the EZ-USB core request that writes internal RAM.
const AnchorLoadInternal = 0xA0

// Transfer direction as carried in request structures.
const (
	DirHostToDevice = 0
	DirDeviceToHost = 1
)

// Request type values of VendorOrClassRequestControl.
const (
	RequestTypeClass  = 1
	RequestTypeVendor = 2
)

// Recipient values of VendorOrClassRequestControl.
const (
	RecipientDevice    = 0
	RecipientInterface = 1
	RecipientEndpoint  = 2
	RecipientOther     = 3
)

// VendorRequestIn is the input of IOCTL_Ezusb_VENDOR_REQUEST.
type VendorRequestIn struct {
	Request   uint8
	Value     uint16
	Index     uint16
	Length    uint16
	Direction uint8
	Data      uint8 // payload when Length == 1
}

// IsRead reports whether the request moves data from the device.
func (r *VendorRequestIn) IsRead() bool { return r.Direction != DirHostToDevice }

func (r *VendorRequestIn) MarshalBinary() ([]byte, error) {
	b := make([]byte, VendorRequestInSize)
	b[0] = r.Request
	binary.LittleEndian.PutUint16(b[2:4], r.Value)
	binary.LittleEndian.PutUint16(b[4:6], r.Index)
	binary.LittleEndian.PutUint16(b[6:8], r.Length)
	b[8] = r.Direction
	b[9] = r.Data
	return b, nil
}

func (r *VendorRequestIn) UnmarshalBinary(data []byte) error {
	if len(data) < VendorRequestInSize {
		return io.ErrUnexpectedEOF
	}
	r.Request = data[0]
	r.Value = binary.LittleEndian.Uint16(data[2:4])
	r.Index = binary.LittleEndian.Uint16(data[4:6])
	r.Length = binary.LittleEndian.Uint16(data[6:8])
	r.Direction = data[8]
	r.Data = data[9]
	return nil
}

// BulkTransferControl is the input of IOCTL_EZUSB_BULK_READ and
// IOCTL_EZUSB_BULK_WRITE.
type BulkTransferControl struct {
	Pipe uint32
}

func (c *BulkTransferControl) MarshalBinary() ([]byte, error) {
	b := make([]byte, BulkTransferControlSize)
	binary.LittleEndian.PutUint32(b, c.Pipe)
	return b, nil
}

func (c *BulkTransferControl) UnmarshalBinary(data []byte) error {
	if len(data) < BulkTransferControlSize {
		return io.ErrUnexpectedEOF
	}
	c.Pipe = binary.LittleEndian.Uint32(data[0:4])
	return nil
}

// AnchorDownloadControl is the input of IOCTL_EZUSB_ANCHOR_DOWNLOAD. The
// firmware bytes travel in the output buffer.
type AnchorDownloadControl struct {
	Offset uint16
}

func (c *AnchorDownloadControl) MarshalBinary() ([]byte, error) {
	b := make([]byte, AnchorDownloadControlSize)
	binary.LittleEndian.PutUint16(b, c.Offset)
	return b, nil
}

func (c *AnchorDownloadControl) UnmarshalBinary(data []byte) error {
	if len(data) < AnchorDownloadControlSize {
		return io.ErrUnexpectedEOF
	}
	c.Offset = binary.LittleEndian.Uint16(data[0:2])
	return nil
}

// VendorOrClassRequestControl is the input of
// IOCTL_EZUSB_VENDOR_OR_CLASS_REQUEST. The payload travels in the output
// buffer in both directions.
type VendorOrClassRequestControl struct {
	Direction    uint8
	RequestType  uint8 // RequestTypeClass or RequestTypeVendor
	Recipient    uint8
	ReservedBits uint8
	Request      uint8
	Value        uint16
	Index        uint16
}

// IsRead reports whether the request moves data from the device.
func (c *VendorOrClassRequestControl) IsRead() bool { return c.Direction != DirHostToDevice }

func (c *VendorOrClassRequestControl) MarshalBinary() ([]byte, error) {
	b := make([]byte, VendorOrClassRequestControlSize)
	b[0] = c.Direction
	b[1] = c.RequestType
	b[2] = c.Recipient
	b[3] = c.ReservedBits
	b[4] = c.Request
	binary.LittleEndian.PutUint16(b[6:8], c.Value)
	binary.LittleEndian.PutUint16(b[8:10], c.Index)
	return b, nil
}

func (c *VendorOrClassRequestControl) UnmarshalBinary(data []byte) error {
	if len(data) < VendorOrClassRequestControlSize {
		return io.ErrUnexpectedEOF
	}
	c.Direction = data[0]
	c.RequestType = data[1]
	c.Recipient = data[2]
	c.ReservedBits = data[3]
	c.Request = data[4]
	c.Value = binary.LittleEndian.Uint16(data[6:8])
	c.Index = binary.LittleEndian.Uint16(data[8:10])
	return nil
}
