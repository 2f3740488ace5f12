package wire_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/ezusb-shim/wire"
)

func TestRequestLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteRequest(&buf, 0x00222014, []byte{0xaa, 0xbb}, []byte{0xcc}))

	assert.Equal(t, []byte{
		0x01, 0x00, 0x00, 0x01,
		0x00, 0x22, 0x20, 0x14,
		0x00, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x01,
		0xaa, 0xbb, 0xcc,
	}, buf.Bytes())

	req, err := wire.ReadRequest(&buf, wire.DefaultMaxBuffer)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00222014), req.Header.Code)
	assert.Equal(t, []byte{0xaa, 0xbb}, req.In)
	assert.Equal(t, []byte{0xcc}, req.Out)
}

func TestReplyLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteReply(&buf, 31, 6, true, nil, []byte{1, 2}))

	assert.Equal(t, []byte{
		0x01, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x1f,
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x06,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x02,
		0x01, 0x02,
	}, buf.Bytes())

	out := make([]byte, 2)
	h, err := wire.ReadReply(&buf, nil, out)
	require.NoError(t, err)
	assert.Equal(t, uint32(31), h.Status)
	assert.True(t, h.HasBytes())
	assert.Equal(t, uint32(6), h.BytesReturned)
	assert.Equal(t, []byte{1, 2}, out)
}

func TestReadRequestErrors(t *testing.T) {
	frame := func(version, cmd uint16, inLen, outLen uint32) []byte {
		var buf bytes.Buffer
		h := wire.RequestHeader{Version: version, Command: cmd, Code: 1, InLen: inLen, OutLen: outLen}
		require.NoError(t, h.Write(&buf))
		return buf.Bytes()
	}

	tests := []struct {
		name    string
		data    []byte
		maxBuf  uint32
		wantErr error
	}{
		{name: "bad version", data: frame(0x0200, wire.CmdIoctl, 0, 0), maxBuf: 16, wantErr: wire.ErrVersion},
		{name: "bad command", data: frame(wire.Version, wire.RetIoctl, 0, 0), maxBuf: 16, wantErr: wire.ErrCommand},
		{name: "input too large", data: frame(wire.Version, wire.CmdIoctl, 17, 0), maxBuf: 16, wantErr: wire.ErrTooLarge},
		{name: "output too large", data: frame(wire.Version, wire.CmdIoctl, 0, 17), maxBuf: 16, wantErr: wire.ErrTooLarge},
		{name: "truncated header", data: []byte{0x01, 0x00, 0x00}, maxBuf: 16, wantErr: io.EOF},
		{name: "truncated body", data: frame(wire.Version, wire.CmdIoctl, 4, 0), maxBuf: 16, wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wire.ReadRequest(bytes.NewReader(tt.data), tt.maxBuf)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadReplyLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteReply(&buf, 0, 0, false, []byte{1}, nil))

	_, err := wire.ReadReply(&buf, nil, nil)
	assert.Error(t, err)
}
