// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package provider

import (
	"context"
)

// Embedder is the core interface for embedding providers. Implementations
// turn text into fixed-width vectors; the width is stable for the lifetime
// of the provider and reported by Dimensions.
type Embedder interface {
	Name() string
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, same length and order
	// as the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions reports the vector width D produced by this provider.
	Dimensions() int
	Close() error
}
