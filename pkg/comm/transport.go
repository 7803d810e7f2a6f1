// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package comm

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// ConnectionState is the lifecycle state of a transport.
type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	ConnectionError
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ConnectionError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Config describes a serial connection. It is fixed once a transport has
// been opened with it.
type Config struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   string // "N", "E" or "O"
	StopBits int

	// ReadPoll bounds how long a single ReadAvailable call may wait for
	// bytes to arrive. Zero selects a 20ms poll.
	ReadPoll time.Duration
	// ConnectTimeout bounds Connect. Zero selects 5s.
	ConnectTimeout time.Duration
}

// DefaultConfig returns the BraveJIG router link settings: 38400 baud, 8N1.
func DefaultConfig(port string) Config {
	return Config{
		Port:     port,
		BaudRate: 38400,
		DataBits: 8,
		Parity:   "N",
		StopBits: 1,
	}
}

func (c Config) readPoll() time.Duration {
	if c.ReadPoll <= 0 {
		return 20 * time.Millisecond
	}
	return c.ReadPoll
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ConnectTimeout
}

func (c Config) mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = 38400
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	switch c.Parity {
	case "", "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", c.Parity)
	}
	switch c.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", c.StopBits)
	}
	return mode, nil
}

// Transport is the byte-level link the monitor engine runs over.
type Transport interface {
	Connect() error
	Disconnect() error
	// ReadAvailable returns whatever bytes are currently buffered, or an
	// empty slice when nothing arrived within the configured poll window.
	ReadAvailable() ([]byte, error)
	// Write sends p and flushes, blocking at most timeout.
	Write(p []byte, timeout time.Duration) error
	State() ConnectionState
}

// SerialTransport owns a physical serial port.
type SerialTransport struct {
	cfg   Config
	state atomic.Int32

	mu   sync.Mutex
	port serial.Port
	buf  []byte

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// NewSerialTransport prepares a transport for cfg without opening the port.
func NewSerialTransport(cfg Config) *SerialTransport {
	t := &SerialTransport{cfg: cfg, buf: make([]byte, 4096)}
	t.state.Store(int32(Disconnected))
	return t
}

// Config returns the settings the transport was built with.
func (t *SerialTransport) Config() Config { return t.cfg }

// State returns the current connection state.
func (t *SerialTransport) State() ConnectionState {
	return ConnectionState(t.state.Load())
}

// BytesRead returns the raw byte count read since the last Connect.
func (t *SerialTransport) BytesRead() uint64 { return t.bytesRead.Load() }

// BytesWritten returns the raw byte count written since the last Connect.
func (t *SerialTransport) BytesWritten() uint64 { return t.bytesWritten.Load() }

// Connect opens the port. It fails with a connection error if the port
// cannot be opened within the configured connect timeout.
func (t *SerialTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port != nil {
		return NewError(KindState, "connect", fmt.Errorf("port %s already open", t.cfg.Port))
	}
	t.state.Store(int32(Connecting))

	mode, err := t.cfg.mode()
	if err != nil {
		t.state.Store(int32(Disconnected))
		return NewError(KindConnection, "connect", err)
	}

	type result struct {
		port serial.Port
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		port, err := serial.Open(t.cfg.Port, mode)
		ch <- result{port, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			t.state.Store(int32(ConnectionError))
			if os.IsNotExist(res.err) {
				return Errorf(KindConnection, "connect", "the port '%s' was not found", t.cfg.Port)
			}
			return NewError(KindConnection, "connect", res.err)
		}
		if err := res.port.SetReadTimeout(t.cfg.readPoll()); err != nil {
			res.port.Close()
			t.state.Store(int32(ConnectionError))
			return NewError(KindConnection, "connect", err)
		}
		t.port = res.port
		t.bytesRead.Store(0)
		t.bytesWritten.Store(0)
		t.state.Store(int32(Connected))
		return nil
	case <-time.After(t.cfg.connectTimeout()):
		// The open may still complete; close the port when it does.
		go func() {
			if res := <-ch; res.err == nil {
				res.port.Close()
			}
		}()
		t.state.Store(int32(ConnectionError))
		return Errorf(KindTimeout, "connect", "opening %s timed out", t.cfg.Port)
	}
}

// Disconnect closes the port. It is safe to call on a transport that is
// already closed.
func (t *SerialTransport) Disconnect() error {
	t.mu.Lock()
	port := t.port
	t.port = nil
	t.mu.Unlock()

	t.state.Store(int32(Disconnected))
	if port == nil {
		return nil
	}
	if err := port.Close(); err != nil {
		return NewError(KindConnection, "disconnect", err)
	}
	return nil
}

// ReadAvailable performs one bounded read. A nil slice with a nil error
// means no data arrived within the poll window.
func (t *SerialTransport) ReadAvailable() ([]byte, error) {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()
	if port == nil {
		return nil, NewError(KindState, "read", fmt.Errorf("port not open"))
	}

	n, err := port.Read(t.buf)
	if err != nil {
		t.state.Store(int32(ConnectionError))
		return nil, NewError(KindConnection, "read", err)
	}
	if n == 0 {
		return nil, nil
	}
	t.bytesRead.Add(uint64(n))
	out := make([]byte, n)
	copy(out, t.buf[:n])
	return out, nil
}

// Write sends p and drains the output buffer, blocking at most timeout.
func (t *SerialTransport) Write(p []byte, timeout time.Duration) error {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()
	if port == nil {
		return NewError(KindState, "write", fmt.Errorf("port not open"))
	}

	done := make(chan error, 1)
	go func() {
		n, err := port.Write(p)
		if err == nil {
			t.bytesWritten.Add(uint64(n))
			err = port.Drain()
		}
		done <- err
	}()

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case err := <-done:
		if err != nil {
			t.state.Store(int32(ConnectionError))
			return NewError(KindWrite, "write", err)
		}
		return nil
	case <-time.After(timeout):
		t.state.Store(int32(ConnectionError))
		return Errorf(KindTimeout, "write", "write of %d bytes timed out", len(p))
	}
}
