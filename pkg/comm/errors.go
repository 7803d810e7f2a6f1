// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package comm

import (
	"fmt"
	"time"
)

// Kind classifies a communication failure.
type Kind int

const (
	// KindConnection covers failures opening or closing the port.
	KindConnection Kind = iota
	// KindTimeout covers read, write and queue deadlines that expired.
	KindTimeout
	// KindWrite covers OS-level write failures.
	KindWrite
	// KindProtocol covers malformed inbound frames.
	KindProtocol
	// KindState covers invalid call sequences, such as starting a
	// monitor twice or sending before a connection exists.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindWrite:
		return "write"
	case KindProtocol:
		return "protocol"
	case KindState:
		return "state"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the failure type surfaced by the transport, the monitor engine
// and the protocol codec. It records the operation that failed and when.
type Error struct {
	Kind Kind
	Op   string
	Time time.Time
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error stamped with the current time.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Time: time.Now(), Err: err}
}

// Errorf builds an Error from a format string.
func Errorf(kind Kind, op, format string, args ...interface{}) *Error {
	return NewError(kind, op, fmt.Errorf(format, args...))
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
