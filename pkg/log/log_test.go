package log_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepkg/pkgexec/pkg/log"
)

func TestSetLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := log.New(log.WithOutput(&buf), log.WithFormatter(&logrus.TextFormatter{DisableTimestamp: true}))

	logger.Debugf("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, logger.SetLevel("debug"))
	assert.Equal(t, log.DebugLevel, logger.Level())

	logger.Debugf("visible")
	assert.Contains(t, buf.String(), "visible")

	require.Error(t, logger.SetLevel("loud"))
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	logger := log.New(log.WithLevel(log.InfoLevel))
	clone := logger.Clone()

	require.NoError(t, clone.SetLevel("trace"))
	assert.Equal(t, log.InfoLevel, logger.Level())
	assert.Equal(t, log.TraceLevel, clone.Level())

	logger.SetOptions(log.WithLevel(log.ErrorLevel))
	assert.Equal(t, log.TraceLevel, clone.Level())
}

func TestCloneKeepsFieldsAndOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := log.New(log.WithOutput(&buf), log.WithFormatter(&logrus.TextFormatter{DisableTimestamp: true}))
	clone := logger.WithField("job", "fetch cat/a-1").Clone()

	clone.SetOptions(log.WithLevel(log.DebugLevel))
	clone.Debugf("downloading")
	logger.Debugf("hidden")

	assert.Contains(t, buf.String(), `job="fetch cat/a-1"`)
	assert.Contains(t, buf.String(), "downloading")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestLoggerFromContext(t *testing.T) {
	t.Parallel()

	logger := log.Discard()
	ctx := log.ContextWithLogger(context.Background(), logger)

	assert.Same(t, logger, log.LoggerFromContext(ctx))
	assert.NotNil(t, log.LoggerFromContext(context.Background()))
}
