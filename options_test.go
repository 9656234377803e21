package coro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveEnvironmentOptionsDefaults(t *testing.T) {
	cfg := resolveEnvironmentOptions(nil)
	assert.Equal(t, DefaultMaxCallChainDepth, cfg.maxCallChainDepth)
	assert.Equal(t, DefaultWheelBuckets, cfg.wheelBuckets)
	assert.Equal(t, DefaultTick, cfg.tick)
	assert.NotNil(t, cfg.logger)
}

func TestResolveEnvironmentOptionsOverrides(t *testing.T) {
	logger := NewNoOpLogger()
	cfg := resolveEnvironmentOptions([]Option{
		WithMaxCallChainDepth(7),
		WithWheelBuckets(500),
		WithTick(5 * time.Millisecond),
		WithLogger(logger),
	})
	assert.Equal(t, 7, cfg.maxCallChainDepth)
	assert.Equal(t, 500, cfg.wheelBuckets)
	assert.Equal(t, 5*time.Millisecond, cfg.tick)
	assert.Same(t, logger, cfg.logger)
}

func TestResolveEnvironmentOptionsIgnoresNonPositiveOverrides(t *testing.T) {
	cfg := resolveEnvironmentOptions([]Option{
		WithMaxCallChainDepth(0),
		WithWheelBuckets(-1),
		WithTick(0),
		nil,
	})
	assert.Equal(t, DefaultMaxCallChainDepth, cfg.maxCallChainDepth)
	assert.Equal(t, DefaultWheelBuckets, cfg.wheelBuckets)
	assert.Equal(t, DefaultTick, cfg.tick)
}
