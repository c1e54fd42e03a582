package output_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sourcepkg/pkgexec/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestDisplayShowsOneJobUntilSwitchInterval(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	out := &bytes.Buffer{}
	display := output.NewDisplay(out, output.WithClock(clock.Now))

	first, err := display.Open(0, "fetch cat/a-1")
	require.NoError(t, err)

	second, err := display.Open(1, "fetch cat/b-1")
	require.NoError(t, err)

	_, _ = first.Write([]byte("a1\n"))
	_, _ = second.Write([]byte("b1\n"))

	display.Tick()
	assert.Equal(t, ">>> fetch cat/a-1\na1\n", out.String())

	clock.Advance(time.Second)
	_, _ = first.Write([]byte("a2\n"))
	display.Tick()
	assert.Equal(t, ">>> fetch cat/a-1\na1\na2\n", out.String())
	assert.True(t, second.Pending())

	clock.Advance(output.DefaultSwitchInterval)
	display.Tick()
	assert.Equal(t, ">>> fetch cat/a-1\na1\na2\n>>> fetch cat/b-1\nb1\n", out.String())
	assert.False(t, second.Pending())
}

func TestDisplaySwitchesAwayFromIdleJob(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	out := &bytes.Buffer{}
	display := output.NewDisplay(out, output.WithClock(clock.Now))

	first, err := display.Open(0, "fetch a")
	require.NoError(t, err)

	second, err := display.Open(1, "fetch b")
	require.NoError(t, err)

	_, _ = first.Write([]byte("a1\n"))
	display.Tick()

	clock.Advance(500 * time.Millisecond)
	_, _ = second.Write([]byte("b1\n"))
	display.Tick()

	assert.Equal(t, ">>> fetch a\na1\n>>> fetch b\nb1\n", out.String())
	assert.False(t, second.Pending())
}

func TestDisplayCloseFlushesRemainingOutput(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	display := output.NewDisplay(out, output.WithClock(newFakeClock().Now))

	handle, err := display.Open(3, "install cat/a-1")
	require.NoError(t, err)

	_, _ = handle.Write([]byte("merging\n"))
	require.NoError(t, display.Close(handle))

	assert.Equal(t, ">>> install cat/a-1\nmerging\n", out.String())
	assert.Empty(t, display.Active())

	_, err = handle.Write([]byte("late\n"))
	assert.Error(t, err)
}

func TestDisplayReportsIdleJobs(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	out := &bytes.Buffer{}
	display := output.NewDisplay(out, output.WithClock(clock.Now), output.WithIdleTimeout(10*time.Second))

	_, err := display.Open(0, "fetch cat/slow-1")
	require.NoError(t, err)

	clock.Advance(5 * time.Second)
	display.Tick()
	assert.Empty(t, out.String())

	clock.Advance(5 * time.Second)
	display.Tick()
	assert.Equal(t, "--- no output from fetch cat/slow-1 for 10 seconds\n", out.String())

	clock.Advance(time.Second)
	display.Tick()
	assert.Equal(t, "--- no output from fetch cat/slow-1 for 10 seconds\n", out.String())

	clock.Advance(9 * time.Second)
	display.Tick()
	assert.Contains(t, out.String(), "for 20 seconds\n")
}

func TestDisplayWritesLogFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	display := output.NewDisplay(&bytes.Buffer{}, output.WithLogDir(dir))

	handle, err := display.Open(7, "fetch cat/a-1")
	require.NoError(t, err)

	_, err = handle.Write([]byte("downloading\n"))
	require.NoError(t, err)
	require.NoError(t, display.Close(handle))

	path := filepath.Join(dir, "0007-fetch_cat_a-1.log")
	assert.Equal(t, path, string(handle.Ref()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "downloading\n", string(data))
}

func TestDisplayRunStopsWithContext(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	display := output.NewDisplay(out, output.WithPollInterval(time.Millisecond))

	handle, err := display.Open(0, "fetch cat/a-1")
	require.NoError(t, err)

	_, _ = handle.Write([]byte("hello\n"))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.NoError(t, display.Run(ctx))
	assert.Equal(t, ">>> fetch cat/a-1\nhello\n", out.String())
}
