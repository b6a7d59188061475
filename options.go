// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bsp360

import (
	"io"
	"log"
)

// Option configures reading and writing.
type Option func(*config)

type config struct {
	logger  *log.Logger
	inflate bool
}

func newConfig(opts []Option) *config {
	c := &config{
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger sends progress and warning messages to l.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithInflate makes the console reader decompress LZMA lumps and byte-swap
// their contents instead of passing the compressed bodies through.
func WithInflate(inflate bool) Option {
	return func(c *config) {
		c.inflate = inflate
	}
}
