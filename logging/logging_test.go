package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": DebugLevel, "INFO": InfoLevel, "": InfoLevel, "warning": WarnLevel, "error": ErrorLevel}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut)

	logger.Debug("hidden")
	logger.Info("tick", Fields{"b": 2, "a": 1})
	logger.Error(errors.New("boom"), "start failed")

	assert.Equal(t, "[INFO] tick a=1 b=2\n", out.String())
	assert.Equal(t, "[ERROR] start failed: boom\n", errOut.String())
}

func TestWithFieldsAndContext(t *testing.T) {
	var out bytes.Buffer
	base := NewDefaultLoggerWithWriters(&out, &out)
	base.SetLevel(DebugLevel)

	logger := base.WithFields(Fields{"component": "engine"})
	ctx := ContextWithFields(context.Background(), Fields{"session": "s1"})
	logger.WithContext(ctx).Debug("started")

	assert.Equal(t, "[DEBUG] started component=engine session=s1\n", out.String())
}

func TestSetGlobalLoggerNil(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(nil)
	assert.IsType(t, &NoOpLogger{}, GetGlobalLogger())
	assert.NotPanics(t, func() { Info("discarded") })
}
