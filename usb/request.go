// Package usb contains the transfer primitive contract used by the
// translation engine and the USB request bits shared by its backends.
package usb

// bmRequestType bits.
const (
	RequestDirOut = 0x00
	RequestDirIn  = 0x80

	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RecipientDevice    = 0x00
	RecipientInterface = 0x01
	RecipientEndpoint  = 0x02
	RecipientOther     = 0x03

	requestDirMask       = 0x80
	requestTypeMask      = 0x60
	requestRecipientMask = 0x1f
)

// USB standard request codes
const (
	ReqGetStatus        = 0x00
	ReqClearFeature     = 0x01
	ReqSetFeature       = 0x03
	ReqSetAddress       = 0x05
	ReqGetDescriptor    = 0x06
	ReqSetDescriptor    = 0x07
	ReqGetConfiguration = 0x08
	ReqSetConfiguration = 0x09
)

// RequestType is a decoded bmRequestType byte.
type RequestType uint8

// IsIn reports whether the request moves data from the device to the host.
func (t RequestType) IsIn() bool { return uint8(t)&requestDirMask == RequestDirIn }

// Type returns the type bits (standard, class or vendor).
func (t RequestType) Type() uint8 { return uint8(t) & requestTypeMask }

// Recipient returns the recipient bits.
func (t RequestType) Recipient() uint8 { return uint8(t) & requestRecipientMask }

// In returns t with the device-to-host direction bit set.
func (t RequestType) In() RequestType { return t | RequestDirIn }

// Out returns t with the direction bit cleared.
func (t RequestType) Out() RequestType { return t &^ RequestDirIn }
