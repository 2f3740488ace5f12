package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Alia5/ezusb-shim/client"
	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/Alia5/ezusb-shim/translate"
)

// Version prints the driver version reported by the target.
type Version struct {
	Target `embed:""`
}

func (c *Version) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	return c.withInvoker(logger, rawLogger, func(ctx context.Context, inv translate.Invoker) error {
		v, err := client.DriverVersion(ctx, inv)
		if err != nil {
			return err
		}
		cfg, err := client.CurrentConfig(ctx, inv)
		if err != nil {
			logger.Warn("cannot read current configuration", "error", err)
			_, err = fmt.Fprintf(stdout, "driver %s\n", v)
			return err
		}
		_, err = fmt.Fprintf(stdout, "driver %s, configuration %d\n", v, cfg)
		return err
	})
}

// Vendor issues one vendor request.
type Vendor struct {
	Target `embed:""`

	Request   uint8  `arg:"" help:"bRequest of the vendor request"`
	Value     uint16 `help:"wValue" default:"0"`
	Index     uint16 `help:"wIndex" default:"0"`
	Length    uint16 `help:"Number of bytes to read or write" default:"1"`
	Direction string `help:"Transfer direction" enum:"in,out" default:"in"`
	Data      uint8  `help:"Byte sent by one byte writes; longer writes send 0,1,2,..." default:"0"`
}

func (c *Vendor) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	return c.withInvoker(logger, rawLogger, func(ctx context.Context, inv translate.Invoker) error {
		if c.Direction == "out" {
			n, err := client.VendorWrite(ctx, inv, c.Request, c.Value, c.Index, c.Length, c.Data)
			if err != nil {
				return err
			}
			logger.Info("vendor write done", "request", c.Request, "written", n)
			return nil
		}
		data, err := client.VendorRead(ctx, inv, c.Request, c.Value, c.Index, c.Length)
		if err != nil {
			return err
		}
		return writeData(data)
	})
}

// Bulk groups the bulk pipe commands.
type Bulk struct {
	Read  BulkRead  `cmd:"" help:"Read from a bulk pipe"`
	Write BulkWrite `cmd:"" help:"Write to a bulk pipe"`
}

type BulkRead struct {
	Target `embed:""`

	Pipe   uint32 `arg:"" help:"Pipe number"`
	Length int    `help:"Number of bytes to read" default:"64"`
}

func (c *BulkRead) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	if c.Length < 0 {
		return fmt.Errorf("invalid length %d", c.Length)
	}
	return c.withInvoker(logger, rawLogger, func(ctx context.Context, inv translate.Invoker) error {
		buf := make([]byte, c.Length)
		if err := client.BulkRead(ctx, inv, c.Pipe, buf); err != nil {
			return err
		}
		return writeData(buf)
	})
}

type BulkWrite struct {
	Target `embed:""`

	Pipe uint32 `arg:"" help:"Pipe number"`
	Data string `arg:"" optional:"" help:"Payload in hex; read raw from stdin when omitted"`
}

func (c *BulkWrite) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	payload, err := c.payload()
	if err != nil {
		return err
	}
	return c.withInvoker(logger, rawLogger, func(ctx context.Context, inv translate.Invoker) error {
		if err := client.BulkWrite(ctx, inv, c.Pipe, payload); err != nil {
			return err
		}
		logger.Info("bulk write done", "pipe", c.Pipe, "bytes", len(payload))
		return nil
	})
}

func (c *BulkWrite) payload() ([]byte, error) {
	if c.Data == "" {
		return io.ReadAll(stdin)
	}
	s := strings.NewReplacer(" ", "", ":", "").Replace(strings.TrimPrefix(c.Data, "0x"))
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return b, nil
}
