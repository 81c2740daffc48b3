package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterpreter writes a shell script that stands in for python. It is
// invoked as: <script> -c <program> <sharded> <output>.
func fakeInterpreter(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script interpreter stand-in needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "python")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestPythonMergerSuccess(t *testing.T) {
	interp := fakeInterpreter(t, `[ "$1" = "-c" ] || exit 2
printf 'merged %s' "$3" > "$4"`)

	dir := t.TempDir()
	out := filepath.Join(dir, "out.pt")
	m := &PythonMerger{Interpreter: interp}

	require.NoError(t, m.Merge(context.Background(), "shards", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "merged shards", string(data))
}

func TestPythonMergerPassesEnv(t *testing.T) {
	interp := fakeInterpreter(t, `printf '%s' "$MERGE_MARKER" > "$4"`)

	out := filepath.Join(t.TempDir(), "out.pt")
	m := &PythonMerger{Interpreter: interp, Env: []string{"MERGE_MARKER=rank-files"}}

	require.NoError(t, m.Merge(context.Background(), "shards", out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "rank-files", string(data))
}

func TestPythonMergerFailureCarriesOutput(t *testing.T) {
	interp := fakeInterpreter(t, `echo "FileNotFoundError: zero_pp_rank_0_mp_rank_00_optim_states.pt" >&2
exit 1`)

	m := &PythonMerger{Interpreter: interp}
	err := m.Merge(context.Background(), "shards", filepath.Join(t.TempDir(), "out.pt"))
	require.Error(t, err)

	var merr *MergeError
	require.True(t, errors.As(err, &merr))
	assert.Contains(t, merr.Output, "FileNotFoundError")
	assert.Contains(t, err.Error(), "zero_pp_rank_0")
}

func TestPythonMergerMissingInterpreter(t *testing.T) {
	m := &PythonMerger{Interpreter: filepath.Join(t.TempDir(), "no-such-python")}
	err := m.Merge(context.Background(), "shards", "out.pt")

	var merr *MergeError
	require.True(t, errors.As(err, &merr))
}

func TestPythonMergerDefaultInterpreter(t *testing.T) {
	assert.Equal(t, DefaultInterpreter, (&PythonMerger{}).interpreter())
}

func TestConverterWithPythonMergerFailure(t *testing.T) {
	interp := fakeInterpreter(t, `echo partial > "$4"
exit 3`)

	input := shardedDir(t)
	c := NewConverter(&PythonMerger{Interpreter: interp})

	_, err := c.Convert(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, []string{"last.ckpt"}, dirEntries(t, filepath.Dir(input)))
}
