// Package client issues driver requests against a remote ezshim server and
// offers typed helpers over any translate.Invoker.
package client

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/translate"
	"github.com/Alia5/ezusb-shim/wire"
)

// Config controls low-level transport behavior such as timeouts.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Client keeps one connection to the server and sends requests one at a
// time. The connection is dialed on first use and redialed after a
// transport error.
type Client struct {
	addr string
	cfg  Config

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

var _ translate.Invoker = (*Client)(nil)

// New creates a client for the server at addr.
func New(addr string) *Client { return NewWithConfig(addr, nil) }

// NewWithConfig creates a client with optional timeouts configuration.
func NewWithConfig(addr string, cfg *Config) *Client {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Client{addr: addr, cfg: c}
}

// Invoke sends one request and copies the returned buffers back into in
// and out, so callers observe the same buffer contents as a local
// dispatch.
func (c *Client) Invoke(ctx context.Context, code ezusb.IOCTL, in, out []byte) (translate.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return translate.Result{}, err
	}

	res, err := c.roundTrip(ctx, code, in, out)
	if err != nil {
		c.closeLocked()
		return translate.Result{}, err
	}
	return res, nil
}

func (c *Client) connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, code ezusb.IOCTL, in, out []byte) (translate.Result, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(earliest(ctx, c.cfg.WriteTimeout))
	}
	if err := wire.WriteRequest(c.conn, uint32(code), in, out); err != nil {
		return translate.Result{}, fmt.Errorf("write: %w", err)
	}

	if c.cfg.ReadTimeout > 0 {
		_ = c.conn.SetReadDeadline(earliest(ctx, c.cfg.ReadTimeout))
	}
	h, err := wire.ReadReply(c.r, in, out)
	if err != nil {
		return translate.Result{}, fmt.Errorf("read: %w", err)
	}
	return translate.Result{
		Status:        ezusb.Status(h.Status),
		BytesReturned: h.BytesReturned,
		HasBytes:      h.HasBytes(),
	}, nil
}

func earliest(ctx context.Context, d time.Duration) time.Time {
	t := time.Now().Add(d)
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(t) {
		return deadline
	}
	return t
}

// Close drops the connection. The client may still be used afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.r = nil
	return err
}
