// Package ioctl serves raw driver requests received over TCP.
package ioctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Alia5/ezusb-shim/ezusb"
	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/Alia5/ezusb-shim/translate"
	"github.com/Alia5/ezusb-shim/wire"
)

type Server struct {
	config    *ServerConfig
	logger    *slog.Logger
	rawLogger log.RawLogger
	invoker   translate.Invoker

	// dispatchMu serializes requests from all clients; they share one device.
	dispatchMu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once
	lnMu      sync.Mutex
	ln        net.Listener
	closed    bool
}

func New(config ServerConfig, invoker translate.Invoker, logger *slog.Logger, rawLogger log.RawLogger) *Server {
	if config.MaxBufferSize == 0 {
		config.MaxBufferSize = wire.DefaultMaxBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    &config,
		logger:    logger,
		rawLogger: rawLogger,
		invoker:   invoker,
		ready:     make(chan struct{}),
	}
}

// ListenAndServe starts the IOCTL server and handles incoming connections.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.lnMu.Lock()
	if s.closed {
		s.lnMu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.ln = ln
	s.lnMu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("IOCTL server listening", "addr", ln.Addr().String())
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Info("IOCTL server stopped")
				return nil
			}
			s.logger.Error("Accept error", "error", err)
			continue
		}
		s.logger.Info("Client connected", "remote", c.RemoteAddr())
		go func() {
			if err := s.handleConn(c); err != nil {
				if isClientDisconnect(err) {
					s.logger.Info("Client disconnected", "error", err)
				} else {
					s.logger.Error("Connection handler error", "error", err)
				}
			}
		}()
	}
}

// Ready returns a channel that is closed once the server has successfully bound
// to its listen address and is ready to accept connections.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound listen address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops the server by closing its listener. Open connections finish
// their current request. A server closed before it started listening does
// not start.
func (s *Server) Close() error {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	s.closed = true
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

// --

func (s *Server) handleConn(conn net.Conn) error {
	defer conn.Close()
	conn = &logConn{Conn: conn, s: s}
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		if s.config.ConnectionTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.config.ConnectionTimeout)); err != nil {
				s.logger.Warn("Failed to set deadline", "error", err)
			}
		}
		req, err := wire.ReadRequest(r, s.config.MaxBufferSize)
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		res, err := s.dispatch(req)
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", ezusb.IOCTL(req.Header.Code), err)
		}

		if err := wire.WriteReply(w, uint32(res.Status), res.BytesReturned, res.HasBytes, req.In, req.Out); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}
}

func (s *Server) dispatch(req *wire.Request) (translate.Result, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	return s.invoker.Invoke(context.Background(), ezusb.IOCTL(req.Header.Code), req.In, req.Out)
}

type logConn struct {
	net.Conn
	s *Server
}

func (lc *logConn) Read(p []byte) (int, error) {
	n, err := lc.Conn.Read(p)
	if n > 0 && lc.s.rawLogger != nil {
		lc.s.rawLogger.Log(true, p[:n])
	}
	return n, err
}

func (lc *logConn) Write(p []byte) (int, error) {
	n, err := lc.Conn.Write(p)
	if n > 0 && lc.s.rawLogger != nil {
		lc.s.rawLogger.Log(false, p[:n])
	}
	return n, err
}

func isClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// On many platforms the underlying error will be a syscall.Errno
		switch t := opErr.Err.(type) {
		case syscall.Errno:
			if t == syscall.ECONNRESET || t == syscall.EPIPE {
				return true
			}
		}
	}
	// Fallback to checking the message for platform-specific strings.
	e := strings.ToLower(err.Error())
	if strings.Contains(e, "connection reset by peer") || strings.Contains(e, "forcibly closed") || strings.Contains(e, "aborted") {
		return true
	}
	return false
}
