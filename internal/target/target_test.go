package target_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensorc/internal/target"
)

func TestParseDefaultsToCPU(t *testing.T) {
	tgt, err := target.Parse([]byte(``))
	require.NoError(t, err)
	assert.False(t, tgt.IsGPU())
}

func TestParseCPU(t *testing.T) {
	tgt, err := target.Parse([]byte("kind: cpu\n"))
	require.NoError(t, err)
	assert.False(t, tgt.IsGPU())
}

func TestParseGPU(t *testing.T) {
	doc := `
kind: gpu
gpu:
  arch: sm_80
  warpSize: 32
  maxThreadsPerBlock: 1024
  sharedMemBytes: 49152
`
	tgt, err := target.Parse([]byte(doc))
	require.NoError(t, err)
	require.True(t, tgt.IsGPU())
	assert.Equal(t, "sm_80", tgt.GPU.Arch)
	assert.Equal(t, 32, tgt.GPU.WarpSize)
}

func TestParseGPUMissingAttrsErrors(t *testing.T) {
	_, err := target.Parse([]byte("kind: gpu\n"))
	assert.Error(t, err)
}

func TestParseUnknownKindErrors(t *testing.T) {
	_, err := target.Parse([]byte("kind: tpu\n"))
	assert.Error(t, err)
}
