// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger(t *testing.T) {
	logger := DefaultLogger()
	require.NotNil(t, logger)

	logger.Event("started")
	sub := logger.With("endpoint1")
	require.NotNil(t, sub)
	sub.Event("connAccepted", "connId", "abc")

	assert.NotEmpty(t, logger.NewId())
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, nil)
	logger := NewSlogLogger(slog.New(handler))

	root := logger.With("warehouse")
	child := root.With("endpoint1")
	child.Event("requestStarted", "requestId", "ab_00001_0000")

	out := buf.String()
	assert.Contains(t, out, "requestStarted")
	assert.Contains(t, out, "component=warehouse.endpoint1")
	assert.Contains(t, out, "requestId=ab_00001_0000")
}

func TestSlogLoggerDefaultsWhenNil(t *testing.T) {
	logger := NewSlogLogger(nil)
	require.NotNil(t, logger)
	logger.Event("noop")
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	logger := NewZerologLogger(base)

	child := logger.With("hostmanager")
	child.Event("certResolved", "hostname", "example.com")

	out := buf.String()
	assert.Contains(t, out, "certResolved")
	assert.Contains(t, out, "hostmanager")
	assert.Contains(t, out, "example.com")
}

func TestLoggerNewIdUnique(t *testing.T) {
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	a := logger.NewId()
	b := logger.NewId()
	assert.NotEqual(t, a, b)
}
