package streamjson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, DefaultBufferSize, config.BufferSize)
	assert.Equal(t, StrategySmart, config.CompletionStrategy)
	assert.Equal(t, DiffSmart, config.DiffMode)
	assert.True(t, config.EnableCompletion)
	assert.True(t, config.CoalescingEnabled)
}

func TestValidateCorrectsZeroValues(t *testing.T) {
	config := &Config{}
	require.NoError(t, config.Validate())

	assert.Equal(t, DefaultBufferSize, config.BufferSize)
	assert.Equal(t, int64(DefaultMaxChunkSize), config.MaxChunkSize)
	assert.Equal(t, StrategySmart, config.CompletionStrategy)
	assert.Equal(t, DiffSmart, config.DiffMode)
	assert.Equal(t, DefaultChunkTimeout, config.ChunkTimeout)
	assert.Equal(t, DefaultStabilityThreshold, config.StabilityThreshold)
}

func TestValidateRaisesTinyBuffer(t *testing.T) {
	config := DefaultConfig()
	config.BufferSize = 10
	require.NoError(t, config.Validate())
	assert.Equal(t, MinBufferSize, config.BufferSize)
}

func TestValidateRejectsBadValues(t *testing.T) {
	config := DefaultConfig()
	config.BufferSize = -1
	assert.ErrorIs(t, config.Validate(), ErrInvalidArgument)

	config = DefaultConfig()
	config.BufferSize = MaxBufferSize + 1
	assert.ErrorIs(t, config.Validate(), ErrInvalidArgument)

	config = DefaultConfig()
	config.CompletionStrategy = "yolo"
	assert.ErrorIs(t, config.Validate(), ErrInvalidArgument)

	config = DefaultConfig()
	config.DiffMode = "psychic"
	assert.ErrorIs(t, config.Validate(), ErrInvalidArgument)
}

func TestValidateMaxTimeoutAtLeastChunkTimeout(t *testing.T) {
	config := DefaultConfig()
	config.ChunkTimeout = 10 * time.Second
	config.MaxTimeout = time.Second
	require.NoError(t, config.Validate())
	assert.GreaterOrEqual(t, config.MaxTimeout, config.ChunkTimeout)
}

func TestConfigClone(t *testing.T) {
	config := DefaultConfig()
	clone := config.Clone()
	clone.BufferSize = 42

	assert.Equal(t, DefaultBufferSize, config.BufferSize)
	assert.Equal(t, 42, clone.BufferSize)

	var nilConfig *Config
	assert.NotNil(t, nilConfig.Clone())
}

func TestPresetConfigs(t *testing.T) {
	low := LowLatencyConfig()
	require.NoError(t, low.Validate())
	assert.False(t, low.CoalescingEnabled)
	assert.Less(t, low.ChunkTimeout, DefaultChunkTimeout)

	large := LargeStreamConfig()
	require.NoError(t, large.Validate())
	assert.Greater(t, large.BufferSize, DefaultBufferSize)
}
