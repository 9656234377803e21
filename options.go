// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package coro

import "time"

// Defaults mirror the original libco constants (see SPEC_FULL.md §6/§9).
const (
	// DefaultMaxCallChainDepth bounds the resume call-chain to guard
	// against runaway recursive Resume calls.
	DefaultMaxCallChainDepth = 128

	// DefaultWheelBuckets gives a 60-second horizon at 1ms granularity,
	// matching libco's 60,000-slot timing wheel.
	DefaultWheelBuckets = 60000

	// DefaultTick is the minimum granularity of a wheel bucket.
	DefaultTick = time.Millisecond

	// DefaultStackSize is used when a Coroutine is created with a zero
	// StackAttr.Size.
	DefaultStackSize = 128 * 1024

	// MinStackSize and MaxStackSize clamp StackAttr.Size.
	MinStackSize = 4 * 1024
	MaxStackSize = 8 * 1024 * 1024

	// DefaultSharedStackSize is the per-slot size NewSharedStackPool uses
	// when it is given a frame size that is not positive.
	DefaultSharedStackSize = 1024 * 1024
)

// environmentOptions holds configuration resolved at Environment
// construction time.
type environmentOptions struct {
	maxCallChainDepth int
	wheelBuckets      int
	tick              time.Duration
	logger            Logger
}

// --- Environment Options ---

// Option configures an Environment at construction time.
type Option interface {
	apply(*environmentOptions)
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*environmentOptions)
}

func (o *optionImpl) apply(opts *environmentOptions) {
	o.applyFunc(opts)
}

// WithMaxCallChainDepth overrides the default call-chain depth (128).
func WithMaxCallChainDepth(depth int) Option {
	return &optionImpl{func(opts *environmentOptions) {
		if depth > 0 {
			opts.maxCallChainDepth = depth
		}
	}}
}

// WithWheelBuckets overrides the default timing-wheel bucket count.
func WithWheelBuckets(buckets int) Option {
	return &optionImpl{func(opts *environmentOptions) {
		if buckets > 0 {
			opts.wheelBuckets = buckets
		}
	}}
}

// WithTick overrides the default wheel bucket granularity.
func WithTick(tick time.Duration) Option {
	return &optionImpl{func(opts *environmentOptions) {
		if tick > 0 {
			opts.tick = tick
		}
	}}
}

// WithLogger attaches a Logger scoped to this Environment, overriding the
// process-wide global logger for events raised on it.
func WithLogger(l Logger) Option {
	return &optionImpl{func(opts *environmentOptions) {
		opts.logger = l
	}}
}

// resolveEnvironmentOptions applies Option values over the defaults.
func resolveEnvironmentOptions(opts []Option) *environmentOptions {
	cfg := &environmentOptions{
		maxCallChainDepth: DefaultMaxCallChainDepth,
		wheelBuckets:      DefaultWheelBuckets,
		tick:              DefaultTick,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = getGlobalLogger()
	}
	return cfg
}
