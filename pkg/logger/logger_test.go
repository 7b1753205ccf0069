package logx_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliechat-core/server/internal/core"
	logx "github.com/charliechat-core/server/pkg/logger"
)

func TestInit_ProductionLevels(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.LoggerOpts{Environment: core.Production, Output: &buf})
	t.Cleanup(func() { logx.Init(logx.LoggerOpts{Environment: core.Testing}) })

	assert.False(t, logx.DebugEnabled())
	logx.Debug().Msg("hidden")
	logx.Info().Str("session_id", "s1").Msg("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "visible", line["message"])
	assert.Equal(t, "s1", line["session_id"])
}

func TestInit_DebugOverride(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.LoggerOpts{Environment: core.Production, Debug: true, Output: &buf})
	t.Cleanup(func() { logx.Init(logx.LoggerOpts{Environment: core.Testing}) })

	assert.True(t, logx.DebugEnabled())
	logx.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
