package translate

import (
	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/usb"
)

type requestKey struct {
	requestType uint8
	recipient   uint8
}

var requestTypeTable = map[requestKey]uint8{
	{ezusb.RequestTypeClass, ezusb.RecipientDevice}:     usb.RequestTypeClass | usb.RecipientDevice,
	{ezusb.RequestTypeClass, ezusb.RecipientInterface}:  usb.RequestTypeClass | usb.RecipientInterface,
	{ezusb.RequestTypeClass, ezusb.RecipientEndpoint}:   usb.RequestTypeClass | usb.RecipientEndpoint,
	{ezusb.RequestTypeClass, ezusb.RecipientOther}:      usb.RequestTypeClass | usb.RecipientOther,
	{ezusb.RequestTypeVendor, ezusb.RecipientDevice}:    usb.RequestTypeVendor | usb.RecipientDevice,
	{ezusb.RequestTypeVendor, ezusb.RecipientInterface}: usb.RequestTypeVendor | usb.RecipientInterface,
	{ezusb.RequestTypeVendor, ezusb.RecipientEndpoint}:  usb.RequestTypeVendor | usb.RecipientEndpoint,
	{ezusb.RequestTypeVendor, ezusb.RecipientOther}:     usb.RequestTypeVendor | usb.RecipientOther,
}

// DecodeRequestType maps the driver's (requestType, recipient) pair to the
// type and recipient bits of bmRequestType. Pairs other than class or vendor
// with one of the four recipients decode to 0.
func DecodeRequestType(requestType, recipient uint8) uint8 {
	return requestTypeTable[requestKey{requestType, recipient}]
}
