package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetModeSwitchesLevel(t *testing.T) {
	SetMode("debug")
	assert.Equal(t, zap.DebugLevel, Level())

	SetMode("release")
	assert.Equal(t, zap.InfoLevel, Level())
}

func TestDefaultLoggerIsUsable(t *testing.T) {
	assert.NotPanics(t, func() {
		Log.Info("noop logger before init")
	})
}
