package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "staging", LogFormat: "JSON", LogLevel: "warn"})

	logger.Info("dropped")
	logger.Warn("kept", "order_id", 9)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "staging", line["env"])
	assert.EqualValues(t, 9, line["order_id"])
}

func TestNewLoggerTextDefault(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, nil).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.NotContains(t, buf.String(), "env=")
}
