package options_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sourcepkg/pkgexec/internal/hooks"
	"github.com/sourcepkg/pkgexec/internal/queue"
	"github.com/sourcepkg/pkgexec/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
world_file          = "/tmp/world"
fetch_jobs          = 4
continue_on_failure = "if-satisfied"
idle_timeout        = "30s"

action {
  command = "pkgbuild --quiet"
  env = {
    MAKEOPTS = "-j8"
  }
}

hook "install_all_post" {
  execute     = ["eselect", "news", "read"]
  working_dir = "/tmp"
}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pkgexec.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestConfigApply(t *testing.T) {
	t.Parallel()

	cfg, err := options.LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	opts := options.NewRunOptions()
	require.NoError(t, cfg.Apply(opts, func(string) bool { return false }))

	assert.Equal(t, "/tmp/world", opts.WorldFile)
	assert.Equal(t, 4, opts.FetchJobs)
	assert.Equal(t, queue.IfSatisfied, opts.ContinueOnFailure)
	assert.Equal(t, 30*time.Second, opts.IdleTimeout)
	assert.Equal(t, "pkgbuild --quiet", opts.ActionCommand)
	assert.Equal(t, "-j8", opts.ActionEnv["MAKEOPTS"])
	require.Len(t, opts.Hooks, 1)
	assert.Equal(t, hooks.Hook{Name: hooks.InstallAllPost, WorkingDir: "/tmp", Execute: []string{"eselect", "news", "read"}}, opts.Hooks[0])
}

func TestConfigApplyKeepsFlags(t *testing.T) {
	t.Parallel()

	cfg, err := options.LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	opts := options.NewRunOptions()
	opts.FetchJobs = 2

	require.NoError(t, cfg.Apply(opts, func(attr string) bool { return attr == "fetch_jobs" }))

	assert.Equal(t, 2, opts.FetchJobs)
	assert.Equal(t, "/tmp/world", opts.WorldFile)
}

func TestConfigReadsEnvironment(t *testing.T) {
	t.Setenv("PKGEXEC_TEST_WORLD", "/srv/world")

	cfg, err := options.LoadConfig(writeConfig(t, `world_file = env.PKGEXEC_TEST_WORLD`))
	require.NoError(t, err)

	opts := options.NewRunOptions()
	require.NoError(t, cfg.Apply(opts, func(string) bool { return false }))
	assert.Equal(t, "/srv/world", opts.WorldFile)
}

func TestConfigRejectsBadPolicy(t *testing.T) {
	t.Parallel()

	cfg, err := options.LoadConfig(writeConfig(t, `continue_on_failure = "sometimes"`))
	require.NoError(t, err)

	require.Error(t, cfg.Apply(options.NewRunOptions(), func(string) bool { return false }))
}

func TestReconcileOptions(t *testing.T) {
	t.Parallel()

	opts := options.NewRunOptions()
	opts.RetryFailed = true
	opts.SkipFailed = true

	reconcile := opts.ReconcileOptions()
	assert.True(t, reconcile.RetryFailed)
	assert.False(t, reconcile.RetrySkipped)
	assert.True(t, reconcile.SkipFailed)
}
