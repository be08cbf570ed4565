// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewAddsRunID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	ctx := WithRunID(context.Background(), "run-42")
	log.InfoContext(ctx, "extraction done", "genes", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "run-42", rec["run_id"])
	assert.Equal(t, "extraction done", rec["msg"])
	assert.EqualValues(t, 3, rec["genes"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")
	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.With("component", "crossref").Warn("kept")
	assert.Contains(t, buf.String(), `"component":"crossref"`)
}

func TestRunIDMissing(t *testing.T) {
	assert.Empty(t, RunID(context.Background()))
}
