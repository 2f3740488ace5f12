package testing

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Alia5/ezusb-shim/internal/server/ioctl"
	"github.com/Alia5/ezusb-shim/translate"
	"github.com/Alia5/ezusb-shim/usb"
)

// TestServer is a running IOCTL server backed by an engine.
type TestServer struct {
	Server *ioctl.Server
	Engine *translate.Engine
	Handle *usb.Handle
	Addr   string
}

// StartServer serves dev on a random local port until the test ends.
func StartServer(t *testing.T, dev usb.Device, opts ...translate.Option) *TestServer {
	t.Helper()
	return StartServerWithConfig(t, TestServerConfig(t), dev, opts...)
}

// StartServerWithConfig is StartServer with an explicit server config.
func StartServerWithConfig(t *testing.T, cfg ioctl.ServerConfig, dev usb.Device, opts ...translate.Option) *TestServer {
	t.Helper()

	logger := slog.Default()
	handle := usb.NewHandle(dev)
	engine := translate.New(handle, append([]translate.Option{translate.WithLogger(logger)}, opts...)...)
	srv := ioctl.New(cfg, engine, logger, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-srv.Ready():
		// ok
	case err := <-errCh:
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		t.Fatalf("IOCTL server failed to start: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("IOCTL server did not become ready")
	}
	t.Cleanup(func() { _ = srv.Close() })

	return &TestServer{
		Server: srv,
		Engine: engine,
		Handle: handle,
		Addr:   srv.Addr().String(),
	}
}

// TestServerConfig returns a config listening on a random local port.
func TestServerConfig(t *testing.T) ioctl.ServerConfig {
	t.Helper()

	return ioctl.ServerConfig{
		Addr:              "localhost:0",
		ConnectionTimeout: 5 * time.Second,
		MaxBufferSize:     64 * 1024,
	}
}
