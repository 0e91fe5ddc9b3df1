package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetStandardLogger(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetOutput(os.Stderr)
	})
}

func TestInitLevels(t *testing.T) {
	resetStandardLogger(t)

	require.NoError(t, Init(LogOptions{}))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())

	require.NoError(t, Init(LogOptions{Level: "warn"}))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	require.NoError(t, Init(LogOptions{Level: "warn", Verbose: true}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	assert.Error(t, Init(LogOptions{Level: "loud"}))
}

func TestInitJSON(t *testing.T) {
	resetStandardLogger(t)

	var buf bytes.Buffer
	require.NoError(t, Init(LogOptions{JSON: true, HideTime: true, Output: &buf}))
	logrus.WithField("depth", 4).Info("fractal built")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fractal built", entry["msg"])
	assert.Equal(t, float64(4), entry["depth"])
	assert.NotContains(t, entry, "time")
}
