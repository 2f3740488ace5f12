// Package wire is the framing used to carry raw driver requests over a
// stream connection. All numbers are big-endian.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Wire constants (network byte order / big-endian)
const (
	Version = 0x0100

	CmdIoctl = 0x0001
	RetIoctl = 0x0002

	RequestHeaderSize = 16
	ReplyHeaderSize   = 24

	// FlagBytesReturned marks BytesReturned as reported.
	FlagBytesReturned = 0x00000001

	// DefaultMaxBuffer bounds each of the request buffers.
	DefaultMaxBuffer = 1 << 20
)

var (
	// ErrVersion is returned for frames carrying another protocol version.
	ErrVersion = errors.New("wire: unsupported protocol version")
	// ErrTooLarge is returned when a frame announces a buffer above the
	// allowed maximum.
	ErrTooLarge = errors.New("wire: buffer too large")
	// ErrCommand is returned for frames with an unexpected command.
	ErrCommand = errors.New("wire: unexpected command")
)

// RequestHeader precedes the input and output buffers of one call.
type RequestHeader struct {
	Version uint16
	Command uint16
	Code    uint32
	InLen   uint32
	OutLen  uint32
}

func (h *RequestHeader) Write(w io.Writer) error {
	var buf [RequestHeaderSize]byte
	binary.BigEndian.PutUint16(buf[0:2], h.Version)
	binary.BigEndian.PutUint16(buf[2:4], h.Command)
	binary.BigEndian.PutUint32(buf[4:8], h.Code)
	binary.BigEndian.PutUint32(buf[8:12], h.InLen)
	binary.BigEndian.PutUint32(buf[12:16], h.OutLen)
	_, err := w.Write(buf[:])
	return err
}

func (h *RequestHeader) Read(r io.Reader) error {
	var buf [RequestHeaderSize]byte
	if err := ReadExactly(r, buf[:]); err != nil {
		return err
	}
	h.Version = binary.BigEndian.Uint16(buf[0:2])
	h.Command = binary.BigEndian.Uint16(buf[2:4])
	h.Code = binary.BigEndian.Uint32(buf[4:8])
	h.InLen = binary.BigEndian.Uint32(buf[8:12])
	h.OutLen = binary.BigEndian.Uint32(buf[12:16])
	return nil
}

// ReplyHeader precedes the buffers handed back after a call. The buffers
// are returned in full since the handler may have written to either.
type ReplyHeader struct {
	Version       uint16
	Command       uint16
	Status        uint32
	Flags         uint32
	BytesReturned uint32
	InLen         uint32
	OutLen        uint32
}

// HasBytes reports whether BytesReturned is valid.
func (h *ReplyHeader) HasBytes() bool { return h.Flags&FlagBytesReturned != 0 }

func (h *ReplyHeader) Write(w io.Writer) error {
	var buf [ReplyHeaderSize]byte
	binary.BigEndian.PutUint16(buf[0:2], h.Version)
	binary.BigEndian.PutUint16(buf[2:4], h.Command)
	binary.BigEndian.PutUint32(buf[4:8], h.Status)
	binary.BigEndian.PutUint32(buf[8:12], h.Flags)
	binary.BigEndian.PutUint32(buf[12:16], h.BytesReturned)
	binary.BigEndian.PutUint32(buf[16:20], h.InLen)
	binary.BigEndian.PutUint32(buf[20:24], h.OutLen)
	_, err := w.Write(buf[:])
	return err
}

func (h *ReplyHeader) Read(r io.Reader) error {
	var buf [ReplyHeaderSize]byte
	if err := ReadExactly(r, buf[:]); err != nil {
		return err
	}
	h.Version = binary.BigEndian.Uint16(buf[0:2])
	h.Command = binary.BigEndian.Uint16(buf[2:4])
	h.Status = binary.BigEndian.Uint32(buf[4:8])
	h.Flags = binary.BigEndian.Uint32(buf[8:12])
	h.BytesReturned = binary.BigEndian.Uint32(buf[12:16])
	h.InLen = binary.BigEndian.Uint32(buf[16:20])
	h.OutLen = binary.BigEndian.Uint32(buf[20:24])
	return nil
}

// Request is a decoded call frame.
type Request struct {
	Header RequestHeader
	In     []byte
	Out    []byte
}

// WriteRequest frames one call.
func WriteRequest(w io.Writer, code uint32, in, out []byte) error {
	h := RequestHeader{
		Version: Version,
		Command: CmdIoctl,
		Code:    code,
		InLen:   uint32(len(in)),
		OutLen:  uint32(len(out)),
	}
	if err := h.Write(w); err != nil {
		return err
	}
	if _, err := w.Write(in); err != nil {
		return err
	}
	_, err := w.Write(out)
	return err
}

// ReadRequest reads one call frame. Buffers larger than maxBuf are refused
// before anything is allocated.
func ReadRequest(r io.Reader, maxBuf uint32) (*Request, error) {
	var req Request
	if err := req.Header.Read(r); err != nil {
		return nil, err
	}
	if err := checkHeader(req.Header.Version, req.Header.Command, CmdIoctl); err != nil {
		return nil, err
	}
	if req.Header.InLen > maxBuf || req.Header.OutLen > maxBuf {
		return nil, fmt.Errorf("%w: in=%d out=%d max=%d", ErrTooLarge, req.Header.InLen, req.Header.OutLen, maxBuf)
	}
	req.In = make([]byte, req.Header.InLen)
	req.Out = make([]byte, req.Header.OutLen)
	if err := ReadExactly(r, req.In); err != nil {
		return nil, err
	}
	if err := ReadExactly(r, req.Out); err != nil {
		return nil, err
	}
	return &req, nil
}

// WriteReply frames the outcome of a call along with both buffers.
func WriteReply(w io.Writer, status uint32, bytesReturned uint32, hasBytes bool, in, out []byte) error {
	h := ReplyHeader{
		Version:       Version,
		Command:       RetIoctl,
		Status:        status,
		BytesReturned: bytesReturned,
		InLen:         uint32(len(in)),
		OutLen:        uint32(len(out)),
	}
	if hasBytes {
		h.Flags |= FlagBytesReturned
	}
	if err := h.Write(w); err != nil {
		return err
	}
	if _, err := w.Write(in); err != nil {
		return err
	}
	_, err := w.Write(out)
	return err
}

// ReadReply reads a reply and copies the returned buffers into in and out.
// The reply must carry exactly the lengths that were sent.
func ReadReply(r io.Reader, in, out []byte) (*ReplyHeader, error) {
	var h ReplyHeader
	if err := h.Read(r); err != nil {
		return nil, err
	}
	if err := checkHeader(h.Version, h.Command, RetIoctl); err != nil {
		return nil, err
	}
	if int(h.InLen) != len(in) || int(h.OutLen) != len(out) {
		return nil, fmt.Errorf("wire: reply lengths in=%d out=%d, want in=%d out=%d", h.InLen, h.OutLen, len(in), len(out))
	}
	if err := ReadExactly(r, in); err != nil {
		return nil, err
	}
	if err := ReadExactly(r, out); err != nil {
		return nil, err
	}
	return &h, nil
}

func checkHeader(version, command, want uint16) error {
	if version != Version {
		return fmt.Errorf("%w: 0x%04x", ErrVersion, version)
	}
	if command != want {
		return fmt.Errorf("%w: 0x%04x", ErrCommand, command)
	}
	return nil
}

func ReadExactly(r io.Reader, buf []byte) error {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		if err != nil {
			return err
		}
		n += m
	}
	return nil
}
