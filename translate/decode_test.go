package translate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/translate"
)

func TestDecodeRequestType(t *testing.T) {
	tests := []struct {
		requestType uint8
		recipient   uint8
		want        uint8
	}{
		{ezusb.RequestTypeClass, ezusb.RecipientDevice, 0x20},
		{ezusb.RequestTypeClass, ezusb.RecipientInterface, 0x21},
		{ezusb.RequestTypeClass, ezusb.RecipientEndpoint, 0x22},
		{ezusb.RequestTypeClass, ezusb.RecipientOther, 0x23},
		{ezusb.RequestTypeVendor, ezusb.RecipientDevice, 0x40},
		{ezusb.RequestTypeVendor, ezusb.RecipientInterface, 0x41},
		{ezusb.RequestTypeVendor, ezusb.RecipientEndpoint, 0x42},
		{ezusb.RequestTypeVendor, ezusb.RecipientOther, 0x43},
		{0, ezusb.RecipientDevice, 0},
		{3, ezusb.RecipientInterface, 0},
		{ezusb.RequestTypeVendor, 4, 0},
		{0xff, 0xff, 0},
	}

	for _, tt := range tests {
		got := translate.DecodeRequestType(tt.requestType, tt.recipient)
		assert.Equal(t, tt.want, got, "type=%d recipient=%d", tt.requestType, tt.recipient)
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name       string
		base       int
		payloadLen int
		size       int
		want       []translate.Chunk
	}{
		{
			name:       "empty",
			payloadLen: 0,
			size:       64,
		},
		{
			name:       "single partial",
			base:       0x20,
			payloadLen: 5,
			size:       64,
			want:       []translate.Chunk{{Index: 0, Offset: 0x20, Start: 0, Length: 5}},
		},
		{
			name:       "remainder",
			base:       0x100,
			payloadLen: 130,
			size:       64,
			want: []translate.Chunk{
				{Index: 0, Offset: 0x100, Start: 0, Length: 64},
				{Index: 1, Offset: 0x140, Start: 64, Length: 64},
				{Index: 2, Offset: 0x180, Start: 128, Length: 2},
			},
		},
		{
			name:       "exact multiple",
			payloadLen: 128,
			size:       64,
			want: []translate.Chunk{
				{Index: 0, Offset: 0, Start: 0, Length: 64},
				{Index: 1, Offset: 64, Start: 64, Length: 64},
			},
		},
		{
			name:       "non positive size uses default",
			payloadLen: 65,
			size:       0,
			want: []translate.Chunk{
				{Index: 0, Offset: 0, Start: 0, Length: 64},
				{Index: 1, Offset: 64, Start: 64, Length: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []translate.Chunk
			for c := range translate.Chunks(tt.base, tt.payloadLen, tt.size) {
				got = append(got, c)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), translate.ChunkCount(tt.payloadLen, tt.size))

			covered := 0
			for _, c := range got {
				assert.Equal(t, covered, c.Start)
				covered = c.End()
			}
			assert.Equal(t, max(tt.payloadLen, 0), covered)
		})
	}
}

func TestChunksStopEarly(t *testing.T) {
	n := 0
	for range translate.Chunks(0, 1000, 10) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}
