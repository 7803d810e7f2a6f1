// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package comm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NewError(KindTimeout, "send", errors.New("queue full"))
	assert.Equal(t, "send: timeout error: queue full", err.Error())

	bare := &Error{Kind: KindConnection, Op: "connect"}
	assert.Equal(t, "connect: connection error", bare.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("port gone")
	err := NewError(KindConnection, "connect", cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsKind(t *testing.T) {
	err := Errorf(KindProtocol, "decode", "bad frame")
	assert.True(t, IsKind(err, KindProtocol))
	assert.False(t, IsKind(err, KindTimeout))

	// The kind survives another layer of wrapping.
	wrapped := fmt.Errorf("while monitoring: %w", err)
	assert.True(t, IsKind(wrapped, KindProtocol))

	assert.False(t, IsKind(nil, KindProtocol))
	assert.False(t, IsKind(errors.New("plain"), KindProtocol))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "state", KindState.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
