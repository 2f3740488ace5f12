// Package firmware loads 8051 images into EZ-USB internal RAM through the
// driver requests, the way fxload does with the legacy driver.
package firmware

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/marcinbor85/gohex"

	"github.com/Alia5/ezusb-shim/client"
	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/translate"
)

// CPUCS register addresses.
const (
	CPUCSFX2    = 0xE600
	CPUCSAN21xx = 0x7F92
)

// Segment is a contiguous run of bytes at a RAM address.
type Segment struct {
	Address uint16
	Data    []byte
}

// Image is a firmware image split into segments.
type Image struct {
	Segments []Segment
}

// Size returns the number of data bytes in the image.
func (img *Image) Size() int {
	n := 0
	for _, s := range img.Segments {
		n += len(s.Data)
	}
	return n
}

// ParseHex reads an Intel HEX image. Every segment must fit below 64K.
func ParseHex(r io.Reader) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}
	img := &Image{}
	for _, seg := range mem.GetDataSegments() {
		if uint64(seg.Address)+uint64(len(seg.Data)) > 0x10000 {
			return nil, fmt.Errorf("segment at 0x%x (%d bytes) exceeds 64K", seg.Address, len(seg.Data))
		}
		img.Segments = append(img.Segments, Segment{Address: uint16(seg.Address), Data: seg.Data})
	}
	return img, nil
}

// RawImage wraps a flat binary loaded at base.
func RawImage(base uint16, data []byte) (*Image, error) {
	if int(base)+len(data) > 0x10000 {
		return nil, fmt.Errorf("image at 0x%x (%d bytes) exceeds 64K", base, len(data))
	}
	return &Image{Segments: []Segment{{Address: base, Data: data}}}, nil
}

// LoadConfig holds the loader options.
type LoadConfig struct {
	CPUCS     uint16 `name:"cpucs" help:"Address of the CPUCS register (0xe600 on FX2, 0x7f92 on AN21xx)" default:"0xe600" env:"EZSHIM_FIRMWARE_CPUCS"`
	NoRelease bool   `help:"Keep the CPU in reset after loading" env:"EZSHIM_FIRMWARE_NO_RELEASE"`
}

// Load holds the CPU in reset, writes every segment with an anchor download
// and releases the CPU again unless cfg.NoRelease is set.
func Load(ctx context.Context, inv translate.Invoker, img *Image, cfg LoadConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CPUCS == 0 {
		cfg.CPUCS = CPUCSFX2
	}

	if err := setReset(ctx, inv, cfg.CPUCS, true); err != nil {
		return fmt.Errorf("hold reset: %w", err)
	}
	for _, seg := range img.Segments {
		logger.Debug("loading segment", "address", fmt.Sprintf("0x%04x", seg.Address), "size", len(seg.Data))
		if err := client.AnchorDownload(ctx, inv, seg.Address, seg.Data); err != nil {
			return fmt.Errorf("segment 0x%04x: %w", seg.Address, err)
		}
	}
	if cfg.NoRelease {
		logger.Info("firmware loaded, CPU held in reset", "segments", len(img.Segments), "bytes", img.Size())
		return nil
	}
	if err := setReset(ctx, inv, cfg.CPUCS, false); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}
	logger.Info("firmware loaded", "segments", len(img.Segments), "bytes", img.Size())
	return nil
}

func setReset(ctx context.Context, inv translate.Invoker, cpucs uint16, hold bool) error {
	var v byte
	if hold {
		v = 0x01
	}
	_, err := client.VendorWrite(ctx, inv, ezusb.AnchorLoadInternal, cpucs, 0, 1, v)
	return err
}
