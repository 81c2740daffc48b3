package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/genetrans/genetrans/pkg/convert"
	"github.com/genetrans/genetrans/pkg/settings"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, opts *GlobalOptions, args ...string) (string, string, error) {
	t.Helper()
	if opts == nil {
		opts = &GlobalOptions{}
	}

	cfg := filepath.Join(t.TempDir(), "genetrans.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))

	root := NewRootCommand(opts)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", cfg}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSettingsTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings_template.yaml")

	_, stderr, err := run(t, nil, "settings", "template", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Settings template written to "+path)

	s, err := settings.Load(path)
	require.NoError(t, err)
	assert.Equal(t, settings.Default(), s)
}

func TestSettingsTemplateStdout(t *testing.T) {
	stdout, _, err := run(t, nil, "settings", "template", "-o", "-")
	require.NoError(t, err)

	s, err := settings.Decode(strings.NewReader(stdout))
	require.NoError(t, err)
	assert.Equal(t, settings.Default(), s)
}

func TestSettingsCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 12\n"), 0o644))
	t.Setenv("GENETRANS_BLOCK_SIZE", "128")

	stdout, _, err := run(t, nil, "settings", "check", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "batch_size: 12\n")
	assert.Contains(t, stdout, "block_size: 128\n")

	stdout, _, err = run(t, nil, "settings", "check", "--no-env", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "block_size: 512\n")
}

func TestSettingsCheckRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 12\nnum_epochs: 3\n"), 0o644))

	_, _, err := run(t, nil, "settings", "check", "--no-env", path)
	var verr *settings.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("num_epochs"))
}

func TestDeepspeedToPt(t *testing.T) {
	input := filepath.Join(t.TempDir(), "last.ckpt")
	require.NoError(t, os.MkdirAll(input, 0o755))

	opts := &GlobalOptions{merger: convert.MergerFunc(func(ctx context.Context, in, out string) error {
		return os.WriteFile(out, []byte("fp32"), 0o644)
	})}

	stdout, _, err := run(t, opts, "deepspeed-to-pt", "-d", input)
	require.NoError(t, err)

	want := filepath.Join(filepath.Dir(input), "last.pt")
	assert.Equal(t, want+"\n", stdout)
	assert.FileExists(t, want)
}

func TestDeepspeedToPtLongFlag(t *testing.T) {
	input := filepath.Join(t.TempDir(), "ckpt")
	require.NoError(t, os.MkdirAll(input, 0o755))

	opts := &GlobalOptions{merger: convert.MergerFunc(func(ctx context.Context, in, out string) error {
		return os.WriteFile(out, []byte("fp32"), 0o644)
	})}

	stdout, _, err := run(t, opts, "deepspeed-to-pt", "--deepspeed_weights", input)
	require.NoError(t, err)
	assert.Equal(t, input+".pt\n", stdout)
}

func TestDeepspeedToPtRequiresFlag(t *testing.T) {
	_, _, err := run(t, nil, "deepspeed-to-pt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deepspeed_weights")
}

func TestDeepspeedToPtMissingInput(t *testing.T) {
	dir := t.TempDir()
	opts := &GlobalOptions{merger: convert.MergerFunc(func(ctx context.Context, in, out string) error {
		return os.WriteFile(out, []byte("fp32"), 0o644)
	})}

	_, _, err := run(t, opts, "deepspeed-to-pt", "-d", filepath.Join(dir, "ckpt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, convert.ErrInputNotFound))
	assert.NoFileExists(t, filepath.Join(dir, "ckpt.pt"))
}

func TestHistoryNeedsDatabase(t *testing.T) {
	_, _, err := run(t, nil, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ledger is not enabled")
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, Version)
}

func TestDeepspeedToPtFlags(t *testing.T) {
	root := NewRootCommand(&GlobalOptions{})
	sub, _, err := root.Find([]string{"deepspeed-to-pt"})
	require.NoError(t, err)

	var local []string
	sub.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) { local = append(local, f.Name) })
	assert.Equal(t, []string{"deepspeed_weights"}, local)

	assert.Contains(t, sub.Long, "-c/--config")
	assert.Contains(t, sub.Long, "-v/--verbose")
}
