package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Alia5/ezusb-shim/internal/firmware"
	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/Alia5/ezusb-shim/translate"
)

// Download loads a firmware image into the device RAM.
type Download struct {
	Target `embed:""`

	File string              `arg:"" type:"existingfile" help:"Intel HEX (.hex, .ihx) or raw binary image"`
	Base uint16              `help:"Load address of raw binary images" default:"0"`
	Load firmware.LoadConfig `embed:"" prefix:"firmware."`
}

func (c *Download) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	img, err := c.image()
	if err != nil {
		return err
	}
	logger.Info("Loading firmware", "file", c.File, "segments", len(img.Segments), "bytes", img.Size())
	return c.withInvoker(logger, rawLogger, func(ctx context.Context, inv translate.Invoker) error {
		return firmware.Load(ctx, inv, img, c.Load, logger)
	})
}

func (c *Download) image() (*firmware.Image, error) {
	switch strings.ToLower(filepath.Ext(c.File)) {
	case ".hex", ".ihx":
		f, err := os.Open(c.File)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return firmware.ParseHex(f)
	default:
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		return firmware.RawImage(c.Base, data)
	}
}
