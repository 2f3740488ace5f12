package ioctl_test

import (
	"bufio"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/ezusb-shim/ezusb"
	handlerTest "github.com/Alia5/ezusb-shim/internal/testing"
	"github.com/Alia5/ezusb-shim/usb/sim"
	"github.com/Alia5/ezusb-shim/wire"
)

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestServeRequests(t *testing.T) {
	srv := handlerTest.StartServer(t, sim.New(nil))
	conn := dial(t, srv.Addr)
	r := bufio.NewReader(conn)

	tests := []struct {
		name       string
		code       ezusb.IOCTL
		in         []byte
		out        []byte
		wantStatus uint32
		wantBytes  bool
		wantCount  uint32
		wantOut    []byte
	}{
		{
			name:       "driver version",
			code:       ezusb.IoctlGetDriverVersion,
			out:        make([]byte, 6),
			wantStatus: uint32(ezusb.StatusSuccess),
			wantBytes:  true,
			wantCount:  6,
			wantOut:    []byte{1, 0, 1, 0, 10, 0},
		},
		{
			name:       "current config",
			code:       ezusb.IoctlGetCurrentConfig,
			out:        make([]byte, 1),
			wantStatus: uint32(ezusb.StatusSuccess),
			wantOut:    []byte{1},
		},
		{
			name:       "unknown code",
			code:       ezusb.IOCTL(0x00220000),
			out:        []byte{7},
			wantStatus: uint32(ezusb.StatusInvalidParameter),
			wantOut:    []byte{7},
		},
		{
			name:       "short bulk control",
			code:       ezusb.IoctlBulkRead,
			in:         []byte{0},
			out:        make([]byte, 4),
			wantStatus: uint32(ezusb.StatusInvalidParameter),
			wantOut:    make([]byte, 4),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, wire.WriteRequest(conn, uint32(tt.code), tt.in, tt.out))

			in := make([]byte, len(tt.in))
			out := make([]byte, len(tt.out))
			h, err := wire.ReadReply(r, in, out)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, h.Status)
			assert.Equal(t, tt.wantBytes, h.HasBytes())
			assert.Equal(t, tt.wantCount, h.BytesReturned)
			assert.Equal(t, tt.wantOut, out)
		})
	}
}

func TestOversizedRequestClosesConnection(t *testing.T) {
	srv := handlerTest.StartServer(t, sim.New(nil))
	conn := dial(t, srv.Addr)

	h := wire.RequestHeader{Version: wire.Version, Command: wire.CmdIoctl, Code: uint32(ezusb.IoctlBulkWrite), InLen: 4, OutLen: 1 << 30}
	require.NoError(t, h.Write(conn))

	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	assert.Error(t, err)
}

func TestConcurrentClientsAreSerialized(t *testing.T) {
	dev := handlerTest.NewMockDevice(t)
	var mu sync.Mutex
	active, maxActive := 0, 0
	dev.OnBulkWrite = func(_ uint32, data []byte) (int, error) {
		mu.Lock()
		active++
		maxActive = max(maxActive, active)
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return len(data), nil
	}
	srv := handlerTest.StartServer(t, dev)

	ctl, err := (&ezusb.BulkTransferControl{Pipe: 1}).MarshalBinary()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := net.DialTimeout("tcp", srv.Addr, 2*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			defer conn.Close()
			_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
			r := bufio.NewReader(conn)
			for j := 0; j < 5; j++ {
				if !assert.NoError(t, wire.WriteRequest(conn, uint32(ezusb.IoctlBulkWrite), ctl, []byte{byte(j)})) {
					return
				}
				h, err := wire.ReadReply(r, make([]byte, len(ctl)), make([]byte, 1))
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, uint32(ezusb.StatusSuccess), h.Status)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, dev.Calls(), 20)
	assert.Equal(t, 1, maxActive)
}

func TestCloseStopsServer(t *testing.T) {
	srv := handlerTest.StartServer(t, sim.New(nil))
	require.NoError(t, srv.Server.Close())

	_, err := net.DialTimeout("tcp", srv.Addr, 500*time.Millisecond)
	assert.Error(t, err)
}
