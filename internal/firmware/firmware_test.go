package firmware_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/internal/firmware"
	handlerTest "github.com/Alia5/ezusb-shim/internal/testing"
	"github.com/Alia5/ezusb-shim/translate"
	"github.com/Alia5/ezusb-shim/usb"
	"github.com/Alia5/ezusb-shim/usb/sim"
)

const blinkHex = `:0300000002000CEF
:04000C0075817FE497
:00000001FF
`

func TestParseHex(t *testing.T) {
	img, err := firmware.ParseHex(strings.NewReader(blinkHex))
	require.NoError(t, err)
	require.Len(t, img.Segments, 2)
	assert.Equal(t, firmware.Segment{Address: 0x0000, Data: []byte{0x02, 0x00, 0x0c}}, img.Segments[0])
	assert.Equal(t, firmware.Segment{Address: 0x000c, Data: []byte{0x75, 0x81, 0x7f, 0xe4}}, img.Segments[1])
	assert.Equal(t, 7, img.Size())
}

func TestParseHexErrors(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{name: "bad checksum", hex: ":0300000002000C00\n:00000001FF\n"},
		{name: "not hex", hex: "hello\n"},
		{name: "above 64K", hex: ":020000040001F9\n:0100000001FE\n:00000001FF\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := firmware.ParseHex(strings.NewReader(tt.hex))
			assert.Error(t, err)
		})
	}
}

func TestRawImage(t *testing.T) {
	img, err := firmware.RawImage(0x100, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []firmware.Segment{{Address: 0x100, Data: []byte{1, 2, 3}}}, img.Segments)

	_, err = firmware.RawImage(0xfff0, make([]byte, 32))
	assert.Error(t, err)
}

func TestLoadIntoSimulator(t *testing.T) {
	dev := sim.New(nil)
	e := translate.New(usb.NewHandle(dev))
	img, err := firmware.ParseHex(strings.NewReader(blinkHex))
	require.NoError(t, err)

	require.NoError(t, firmware.Load(context.Background(), e, img, firmware.LoadConfig{}, nil))

	assert.Equal(t, []byte{0x02, 0x00, 0x0c}, dev.Memory(0x0000, 3))
	assert.Equal(t, []byte{0x75, 0x81, 0x7f, 0xe4}, dev.Memory(0x000c, 4))
	assert.True(t, dev.Running())
}

func TestLoadSequence(t *testing.T) {
	tests := []struct {
		name      string
		cfg       firmware.LoadConfig
		wantCPUCS uint16
		wantCalls int
	}{
		{name: "fx2", cfg: firmware.LoadConfig{}, wantCPUCS: firmware.CPUCSFX2, wantCalls: 1 + 3 + 1},
		{name: "an21xx", cfg: firmware.LoadConfig{CPUCS: firmware.CPUCSAN21xx}, wantCPUCS: firmware.CPUCSAN21xx, wantCalls: 1 + 3 + 1},
		{name: "no release", cfg: firmware.LoadConfig{NoRelease: true}, wantCPUCS: firmware.CPUCSFX2, wantCalls: 1 + 3},
	}

	image := make([]byte, 150)
	for i := range image {
		image[i] = byte(i)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := handlerTest.NewMockDevice(t)
			e := translate.New(usb.NewHandle(dev))
			img, err := firmware.RawImage(0x0400, image)
			require.NoError(t, err)

			require.NoError(t, firmware.Load(context.Background(), e, img, tt.cfg, nil))

			calls := dev.Calls()
			require.Len(t, calls, tt.wantCalls)
			for _, c := range calls {
				assert.Equal(t, uint8(ezusb.AnchorLoadInternal), c.Request)
			}
			assert.Equal(t, handlerTest.Call{Op: "control-write", RType: 0x40, Request: ezusb.AnchorLoadInternal, Value: tt.wantCPUCS, Len: 1, Data: []byte{0x01}}, calls[0])
			assert.Equal(t, []uint16{0x0400, 0x0440, 0x0480}, []uint16{calls[1].Value, calls[2].Value, calls[3].Value})
			if len(calls) == 5 {
				assert.Equal(t, []byte{0x00}, calls[4].Data)
				assert.Equal(t, tt.wantCPUCS, calls[4].Value)
			}
		})
	}
}

func TestLoadStopsOnFailure(t *testing.T) {
	dev := handlerTest.NewMockDevice(t)
	dev.OnControlWrite = func(_ uint8, _ uint8, value uint16, _ uint16, data []byte) (int, error) {
		if value == 0x0440 {
			return 0, nil
		}
		return len(data), nil
	}
	e := translate.New(usb.NewHandle(dev))
	img, err := firmware.RawImage(0x0400, make([]byte, 200))
	require.NoError(t, err)

	err = firmware.Load(context.Background(), e, img, firmware.LoadConfig{}, nil)
	assert.ErrorContains(t, err, "segment 0x0400")
	assert.ErrorContains(t, err, "general-failure")
	assert.Len(t, dev.Calls(), 3)
}
