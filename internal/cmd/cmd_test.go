package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/Alia5/ezusb-shim/translate"
	"github.com/Alia5/ezusb-shim/usb/sim"
)

func captureOutput(t *testing.T, terminal bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevTerm := stdout, isTerminal
	stdout = &buf
	isTerminal = func() bool { return terminal }
	t.Cleanup(func() { stdout, isTerminal = prevOut, prevTerm })
	return &buf
}

func simTarget() Target {
	return Target{
		Device: Device{Sim: true, SimOptions: sim.Options{NumPipes: 4, CPUCS: sim.DefaultCPUCS, Configuration: 1}},
		Engine: translate.DefaultConfig(),
	}
}

func TestVersionCommand(t *testing.T) {
	out := captureOutput(t, true)
	c := &Version{Target: simTarget()}

	require.NoError(t, c.Run(slog.Default(), log.NewRaw(nil)))
	assert.Equal(t, "driver 1.1.10, configuration 1\n", out.String())
}

func TestVendorCommand(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Vendor
		terminal bool
		want     string
	}{
		{
			name:     "read on terminal prints hex",
			cmd:      Vendor{Request: 0xa0, Value: uint16(sim.DefaultCPUCS), Length: 1, Direction: "in"},
			terminal: true,
			want:     "01\n",
		},
		{
			name:     "read piped prints raw bytes",
			cmd:      Vendor{Request: 0xa0, Value: uint16(sim.DefaultCPUCS), Length: 1, Direction: "in"},
			terminal: false,
			want:     "\x01",
		},
		{
			name: "write prints nothing",
			cmd:  Vendor{Request: 0xa0, Value: 0x100, Length: 4, Direction: "out"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, tt.terminal)
			c := tt.cmd
			c.Target = simTarget()

			require.NoError(t, c.Run(slog.Default(), log.NewRaw(nil)))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestBulkCommands(t *testing.T) {
	out := captureOutput(t, true)

	r := &BulkRead{Target: simTarget(), Pipe: 1, Length: 3}
	require.NoError(t, r.Run(slog.Default(), log.NewRaw(nil)))
	assert.Equal(t, "00 00 00\n", out.String())

	w := &BulkWrite{Target: simTarget(), Pipe: 1, Data: "0x01:02 03"}
	require.NoError(t, w.Run(slog.Default(), log.NewRaw(nil)))

	bad := &BulkWrite{Target: simTarget(), Pipe: 9, Data: "01"}
	assert.ErrorContains(t, bad.Run(slog.Default(), log.NewRaw(nil)), "general-failure")

	_, err := (&BulkWrite{Data: "zz"}).payload()
	assert.ErrorContains(t, err, "invalid hex payload")
}

func TestBulkWritePayloadFromStdin(t *testing.T) {
	prev := stdin
	stdin = strings.NewReader("raw")
	t.Cleanup(func() { stdin = prev })

	got, err := (&BulkWrite{}).payload()
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), got)
}

func TestDownloadCommand(t *testing.T) {
	dir := t.TempDir()
	hexFile := filepath.Join(dir, "fw.hex")
	require.NoError(t, os.WriteFile(hexFile, []byte(":0300000002000CEF\n:00000001FF\n"), 0o644))
	binFile := filepath.Join(dir, "fw.bin")
	require.NoError(t, os.WriteFile(binFile, []byte{1, 2, 3}, 0o644))

	tests := []struct {
		name string
		cmd  Download
		want int
	}{
		{name: "intel hex", cmd: Download{File: hexFile}, want: 3},
		{name: "raw binary", cmd: Download{File: binFile, Base: 0x200}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.cmd
			c.Target = simTarget()
			img, err := c.image()
			require.NoError(t, err)
			assert.Equal(t, tt.want, img.Size())
			require.NoError(t, c.Run(slog.Default(), log.NewRaw(nil)))
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s := &Serve{
		Device: Device{Sim: true},
		Engine: translate.DefaultConfig(),
	}
	s.IoctlServer.Addr = "localhost:0"
	s.MetricsEndpoint.Addr = "localhost:0"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.StartServer(ctx, slog.Default(), log.NewRaw(nil)) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "serve.json")

	c := &ConfigInit{Command: "serve", Format: "json", Output: dest}
	require.NoError(t, c.Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "localhost:3250", got["ioctl"].(map[string]any)["addr"])
	assert.Equal(t, "reject", got["engine"].(map[string]any)["unknown_ioctl"])
	assert.EqualValues(t, 0x04b4, got["usb"].(map[string]any)["vid"])
	assert.Equal(t, false, got["sim"])
	assert.EqualValues(t, 10, got["engine"].(map[string]any)["driver_version"].(map[string]any)["build"])
	assert.EqualValues(t, 1048576, got["ioctl"].(map[string]any)["max_buffer_size"])

	assert.ErrorContains(t, c.Run(), "destination exists")
	c.Force = true
	c.Format = "toml"
	assert.NoError(t, c.Run())
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Addr":              "addr",
		"MaxBufferSize":     "max_buffer_size",
		"ConnectionTimeout": "connection_timeout",
		"NoRelease":         "no_release",
		"UnknownIOCTL":      "unknown_ioctl",
		"USBConfig":         "usb_config",
	}
	for in, want := range tests {
		assert.Equal(t, want, snakeCase(in), in)
	}
}
