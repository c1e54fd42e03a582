package formatters_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepkg/pkgexec/pkg/log"
	"github.com/sourcepkg/pkgexec/pkg/log/formatters"
)

func TestPrettyFormatterWithoutColors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	formatter := formatters.NewPrettyFormatter(true)
	formatter.DisableTimestamp = true

	logger := log.New(log.WithOutput(&buf), log.WithFormatter(formatter))
	logger.WithField(log.FieldKeyPrefix, "fetch cat/a-1").WithField("index", 3).Infof("started")

	assert.Equal(t, "INFO   [fetch cat/a-1] started index=3\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	_, err := formatters.ParseFormat("json", true)
	require.NoError(t, err)

	_, err = formatters.ParseFormat("pretty", false)
	require.NoError(t, err)

	_, err = formatters.ParseFormat("xml", false)
	require.Error(t, err)
}
