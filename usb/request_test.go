package usb_test

import (
	"testing"

	"github.com/Alia5/ezusb-shim/usb"
	"github.com/stretchr/testify/assert"
)

func TestRequestType(t *testing.T) {
	type testCase struct {
		name      string
		rt        usb.RequestType
		in        bool
		typ       uint8
		recipient uint8
	}

	cases := []testCase{
		{name: "standard from device", rt: 0x80, in: true, typ: usb.RequestTypeStandard, recipient: usb.RecipientDevice},
		{name: "class to interface", rt: 0x21, in: false, typ: usb.RequestTypeClass, recipient: usb.RecipientInterface},
		{name: "vendor from endpoint", rt: 0xC2, in: true, typ: usb.RequestTypeVendor, recipient: usb.RecipientEndpoint},
		{name: "vendor to other", rt: 0x43, in: false, typ: usb.RequestTypeVendor, recipient: usb.RecipientOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.in, tc.rt.IsIn())
			assert.Equal(t, tc.typ, tc.rt.Type())
			assert.Equal(t, tc.recipient, tc.rt.Recipient())
		})
	}

	assert.Equal(t, usb.RequestType(0xC0), usb.RequestType(0x40).In())
	assert.Equal(t, usb.RequestType(0x40), usb.RequestType(0xC0).Out())
}

type nopDevice struct{ id int }

func (nopDevice) ControlRead(uint8, uint8, uint16, uint16, []byte) (int, error)  { return 0, nil }
func (nopDevice) ControlWrite(uint8, uint8, uint16, uint16, []byte) (int, error) { return 0, nil }
func (nopDevice) BulkRead(uint32, []byte) (int, error)                           { return 0, nil }
func (nopDevice) BulkWrite(uint32, []byte) (int, error)                          { return 0, nil }

func TestHandle(t *testing.T) {
	var nilHandle *usb.Handle
	assert.Nil(t, nilHandle.Device())

	h := usb.NewHandle(nil)
	assert.Nil(t, h.Device())

	a := nopDevice{id: 1}
	b := nopDevice{id: 2}
	assert.Nil(t, h.Attach(a))
	assert.Equal(t, a, h.Device())
	assert.Equal(t, a, h.Attach(b))
	assert.Equal(t, b, h.Detach())
	assert.Nil(t, h.Device())
}
