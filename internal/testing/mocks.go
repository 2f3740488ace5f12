package testing

import (
	"slices"
	"sync"
	"testing"
)

// Call is one transfer seen by a MockDevice.
type Call struct {
	Op      string // "control-read", "control-write", "bulk-read" or "bulk-write"
	RType   uint8
	Request uint8
	Value   uint16
	Index   uint16
	Pipe    uint32
	Len     int
	Data    []byte // copy of the payload for writes
}

// MockDevice records every transfer and answers through the optional hooks.
// Without a hook, reads return zero bytes and writes report the full
// payload as transferred.
type MockDevice struct {
	mu    sync.Mutex
	calls []Call

	OnControlRead  func(rType, request uint8, value, index uint16, data []byte) (int, error)
	OnControlWrite func(rType, request uint8, value, index uint16, data []byte) (int, error)
	OnBulkRead     func(pipe uint32, data []byte) (int, error)
	OnBulkWrite    func(pipe uint32, data []byte) (int, error)
}

// NewMockDevice returns a MockDevice using the default answers.
func NewMockDevice(t *testing.T) *MockDevice {
	t.Helper()
	return &MockDevice{}
}

func (m *MockDevice) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns the transfers seen so far.
func (m *MockDevice) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func (m *MockDevice) ControlRead(rType, request uint8, value, index uint16, data []byte) (int, error) {
	m.record(Call{Op: "control-read", RType: rType, Request: request, Value: value, Index: index, Len: len(data)})
	if m.OnControlRead != nil {
		return m.OnControlRead(rType, request, value, index, data)
	}
	return 0, nil
}

func (m *MockDevice) ControlWrite(rType, request uint8, value, index uint16, data []byte) (int, error) {
	m.record(Call{Op: "control-write", RType: rType, Request: request, Value: value, Index: index, Len: len(data), Data: slices.Clone(data)})
	if m.OnControlWrite != nil {
		return m.OnControlWrite(rType, request, value, index, data)
	}
	return len(data), nil
}

func (m *MockDevice) BulkRead(pipe uint32, data []byte) (int, error) {
	m.record(Call{Op: "bulk-read", Pipe: pipe, Len: len(data)})
	if m.OnBulkRead != nil {
		return m.OnBulkRead(pipe, data)
	}
	return 0, nil
}

func (m *MockDevice) BulkWrite(pipe uint32, data []byte) (int, error) {
	m.record(Call{Op: "bulk-write", Pipe: pipe, Len: len(data), Data: slices.Clone(data)})
	if m.OnBulkWrite != nil {
		return m.OnBulkWrite(pipe, data)
	}
	return len(data), nil
}
