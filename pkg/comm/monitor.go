// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package comm

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// EngineState is the lifecycle state of a Monitor.
type EngineState int32

const (
	EngineIdle EngineState = iota
	EngineMonitoring
	EngineStopping
	EngineStopped
	EngineFailed
)

func (s EngineState) String() string {
	switch s {
	case EngineIdle:
		return "idle"
	case EngineMonitoring:
		return "monitoring"
	case EngineStopping:
		return "stopping"
	case EngineStopped:
		return "stopped"
	case EngineFailed:
		return "failed"
	}
	return fmt.Sprintf("engine(%d)", int32(s))
}

// DataFunc receives raw inbound bytes in read order.
type DataFunc func(data []byte)

// ErrorFunc receives transport and callback failures.
type ErrorFunc func(err error)

// StateFunc receives connection state transitions.
type StateFunc func(state ConnectionState)

// MonitorOptions tune a Monitor. The zero value selects the defaults.
type MonitorOptions struct {
	// QueueSize bounds the outbound command queue. Default 32.
	QueueSize int
	// Workers is the fixed size of the callback pool. Default 4.
	Workers int
	// WriteTimeout bounds each port write issued by the send loop.
	// Default 5s.
	WriteTimeout time.Duration
	// StopTimeout bounds how long StopMonitoring waits for the loops to
	// exit. Default 2s.
	StopTimeout time.Duration
	// IdleSleep is the pause after an empty poll. Default 2ms.
	IdleSleep time.Duration
}

func (o MonitorOptions) withDefaults() MonitorOptions {
	if o.QueueSize <= 0 {
		o.QueueSize = 32
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = 2 * time.Second
	}
	if o.IdleSleep <= 0 {
		o.IdleSleep = 2 * time.Millisecond
	}
	return o
}

// Monitor runs continuous reception and queued transmission over one
// Transport. A monitoring session owns four kinds of goroutines: a receive
// loop, a send loop, a data dispatcher and a fixed pool of callback
// workers. The dispatcher invokes the data callback one chunk at a time in
// read order; error and state callbacks go through the pool. Callbacks
// never run on the loops, so a slow consumer cannot stall ingestion.
type Monitor struct {
	transport Transport
	opts      MonitorOptions
	stats     Stats

	state atomic.Int32

	mu       sync.Mutex
	onData   DataFunc
	onError  ErrorFunc
	onState  StateFunc
	lastConn ConnectionState

	sessionMu sync.Mutex
	stopCh    chan struct{}
	stopOnce  *sync.Once
	doneCh    chan struct{}
	sendQ     chan []byte
	dataQ     chan []byte
	tasks     chan func()
}

// NewMonitor builds a Monitor over t. The transport must be connected
// before StartMonitoring is called.
func NewMonitor(t Transport, opts MonitorOptions) *Monitor {
	m := &Monitor{
		transport: t,
		opts:      opts.withDefaults(),
		lastConn:  Disconnected,
	}
	m.state.Store(int32(EngineIdle))
	return m
}

// OnData registers the inbound data callback.
func (m *Monitor) OnData(fn DataFunc) {
	m.mu.Lock()
	m.onData = fn
	m.mu.Unlock()
}

// OnError registers the error callback.
func (m *Monitor) OnError(fn ErrorFunc) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

// OnStateChange registers the connection state callback.
func (m *Monitor) OnStateChange(fn StateFunc) {
	m.mu.Lock()
	m.onState = fn
	m.mu.Unlock()
}

// State returns the engine state.
func (m *Monitor) State() EngineState {
	return EngineState(m.state.Load())
}

// Stats returns the session counters.
func (m *Monitor) Stats() *Stats { return &m.stats }

// StartMonitoring spawns the receive loop, the send loop and the callback
// pool. It fails with a state error when a session is already running or
// the transport is not connected.
func (m *Monitor) StartMonitoring() error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	switch m.State() {
	case EngineMonitoring, EngineStopping:
		return NewError(KindState, "start", fmt.Errorf("monitoring already started"))
	}
	if st := m.transport.State(); st != Connected {
		return Errorf(KindState, "start", "transport is %s, must be connected", st)
	}

	// Counters survive stop/start cycles and reset on a fresh connection.
	m.mu.Lock()
	if m.lastConn != Connected {
		m.stats.reset()
	}
	m.lastConn = Connected
	m.mu.Unlock()

	m.stopCh = make(chan struct{})
	m.stopOnce = new(sync.Once)
	m.doneCh = make(chan struct{})
	m.sendQ = make(chan []byte, m.opts.QueueSize)
	m.dataQ = make(chan []byte, m.opts.QueueSize)
	m.tasks = make(chan func(), m.opts.QueueSize)

	stop, tasks, sendQ, dataQ, done := m.stopCh, m.tasks, m.sendQ, m.dataQ, m.doneCh

	for i := 0; i < m.opts.Workers; i++ {
		go m.worker(stop, tasks)
	}
	// The dispatcher exits on stop like the workers and is not joined, so
	// StopMonitoring stays safe to call from inside a data callback.
	go m.dataLoop(stop, dataQ)

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		m.receiveLoop(stop, dataQ)
	}()
	go func() {
		defer loops.Done()
		m.sendLoop(stop, sendQ)
	}()
	go func() {
		loops.Wait()
		close(done)
	}()

	m.state.Store(int32(EngineMonitoring))
	return nil
}

// StopMonitoring signals both loops and waits for them with a bounded
// timeout. It is idempotent and safe to call from inside a callback.
func (m *Monitor) StopMonitoring() {
	if st := m.State(); st != EngineMonitoring && st != EngineFailed {
		return
	}
	m.state.Store(int32(EngineStopping))

	m.sessionMu.Lock()
	stopOnce, stopCh, doneCh := m.stopOnce, m.stopCh, m.doneCh
	m.sessionMu.Unlock()
	if stopOnce == nil {
		m.state.Store(int32(EngineStopped))
		return
	}

	stopOnce.Do(func() { close(stopCh) })
	select {
	case <-doneCh:
	case <-time.After(m.opts.StopTimeout):
	}
	m.state.Store(int32(EngineStopped))
}

// Send enqueues data for transmission, preserving FIFO order among Send
// calls. It fails with a timeout error when the queue does not accept the
// data within timeout.
func (m *Monitor) Send(data []byte, timeout time.Duration) error {
	if m.State() != EngineMonitoring {
		return NewError(KindState, "send", fmt.Errorf("monitoring not started"))
	}

	m.sessionMu.Lock()
	sendQ, stopCh := m.sendQ, m.stopCh
	m.sessionMu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case sendQ <- data:
		return nil
	case <-stopCh:
		return NewError(KindState, "send", fmt.Errorf("monitoring stopped"))
	case <-timer.C:
		return Errorf(KindTimeout, "send", "command queue full after %v", timeout)
	}
}

func (m *Monitor) receiveLoop(stop chan struct{}, dataQ chan []byte) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		data, err := m.transport.ReadAvailable()
		if err != nil {
			m.failSession(err)
			return
		}
		if len(data) == 0 {
			time.Sleep(m.opts.IdleSleep)
			continue
		}

		m.stats.addReceived(len(data))
		select {
		case dataQ <- data:
		case <-stop:
			return
		}
	}
}

// dataLoop delivers inbound chunks to the data callback one at a time, in
// the order the receive loop read them.
func (m *Monitor) dataLoop(stop chan struct{}, dataQ chan []byte) {
	for {
		select {
		case <-stop:
			return
		case chunk := <-dataQ:
			m.mu.Lock()
			fn := m.onData
			m.mu.Unlock()
			if fn == nil {
				continue
			}
			m.runTask(func() { fn(chunk) })
		}
	}
}

func (m *Monitor) sendLoop(stop chan struct{}, sendQ chan []byte) {
	for {
		select {
		case <-stop:
			return
		case data := <-sendQ:
			if err := m.transport.Write(data, m.opts.WriteTimeout); err != nil {
				m.failSession(err)
				return
			}
			m.stats.addSent(len(data))
		}
	}
}

func (m *Monitor) worker(stop chan struct{}, tasks chan func()) {
	for {
		select {
		case <-stop:
			return
		case task := <-tasks:
			m.runTask(task)
		}
	}
}

// runTask contains callback panics: they are rerouted to the error callback
// and never terminate the engine.
func (m *Monitor) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			m.routeError(Errorf(KindState, "callback", "callback panic: %v", r))
		}
	}()
	task()
}

// failSession reports a transport failure and ends the session. The loops
// exit on the shared stop channel; the engine stays in the failed state
// until the caller reconnects and starts again.
func (m *Monitor) failSession(err error) {
	m.stats.addError()

	// The pool is about to be signalled; deliver straight on a fresh
	// goroutine so the failure cannot be dropped with the queued tasks.
	m.mu.Lock()
	onErr := m.onError
	m.mu.Unlock()
	if onErr != nil {
		go func() {
			defer func() { recover() }()
			onErr(err)
		}()
	}

	m.sessionMu.Lock()
	stopOnce, stopCh := m.stopOnce, m.stopCh
	m.sessionMu.Unlock()
	if stopOnce != nil {
		stopOnce.Do(func() { close(stopCh) })
	}
	m.state.Store(int32(EngineFailed))

	m.mu.Lock()
	m.lastConn = ConnectionError
	fn := m.onState
	m.mu.Unlock()
	if fn != nil {
		go m.runTask(func() { fn(ConnectionError) })
	}
}

func (m *Monitor) routeError(err error) {
	m.mu.Lock()
	fn := m.onError
	m.mu.Unlock()
	if fn == nil {
		return
	}
	// Best effort through the pool; fall back to a fresh goroutine when
	// the pool is gone or saturated so errors are never silently dropped.
	// A panic inside the error callback itself is swallowed rather than
	// rerouted, so it cannot recurse.
	task := func() {
		defer func() { recover() }()
		fn(err)
	}
	m.sessionMu.Lock()
	tasks := m.tasks
	m.sessionMu.Unlock()
	if tasks != nil {
		select {
		case tasks <- task:
			return
		default:
		}
	}
	go m.runTask(task)
}
