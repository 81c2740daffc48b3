package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "GENETRANS_BATCH_SIZE", EnvName(DefaultEnvPrefix, "batch_size"))
}

func TestApplyEnv(t *testing.T) {
	base := Default()
	s, err := ApplyEnv(base, DefaultEnvPrefix, mapLookup(map[string]string{
		"GENETRANS_BATCH_SIZE":     " 32 ",
		"GENETRANS_WANDB_ACTIVE":   "false",
		"GENETRANS_CHECKPOINT_DIR": "/scratch/ckpt",
		"UNRELATED_TRAINING_STEPS": "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, 32, s.BatchSize)
	assert.False(t, s.WandbActive)
	assert.Equal(t, "/scratch/ckpt", s.CheckpointDir)
	assert.Equal(t, 500, s.TrainingSteps)
	assert.Equal(t, 4, base.BatchSize, "input must not be modified")
}

func TestApplyEnvBadValues(t *testing.T) {
	_, err := ApplyEnv(Default(), DefaultEnvPrefix, mapLookup(map[string]string{
		"GENETRANS_BATCH_SIZE":   "lots",
		"GENETRANS_SMALL_SUBSET": "sometimes",
	}))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("batch_size"))
	assert.True(t, verr.Has("small_subset"))
}

func TestResolvePrecedence(t *testing.T) {
	path := writeFile(t, "batch_size: 8\n")
	env := mapLookup(map[string]string{
		"GENETRANS_BATCH_SIZE": "64",
		"GENETRANS_BLOCK_SIZE": "256",
	})

	s, err := Resolve(path, env)
	require.NoError(t, err)
	assert.Equal(t, 8, s.BatchSize, "file wins over environment")
	assert.Equal(t, 256, s.BlockSize, "environment wins over defaults")

	s, err = Resolve("", env)
	require.NoError(t, err)
	assert.Equal(t, 64, s.BatchSize)
}
