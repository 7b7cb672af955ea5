// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package openai

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

// DefaultModel is the embedding model used when the config leaves Model empty.
const DefaultModel = "text-embedding-3-small"

// Config holds OpenAI embedding provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string
	Dimensions int
}

// Embedder implements provider.Embedder using the OpenAI Embeddings API.
type Embedder struct {
	client openaisdk.Client
	config Config
}

// New creates a new OpenAI embedder. Returns an error if the API key is
// missing or the configured dimensions are not positive.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, mnemoserr.New(mnemoserr.CodeConfigValidateInvalidValue,
			"openai: missing api_key in config")
	}
	if cfg.Dimensions <= 0 {
		return nil, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"openai: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openaisdk.NewClient(opts...)
	return &Embedder{client: client, config: cfg}, nil
}

func (e *Embedder) Name() string { return "openai" }

// Model returns the configured embedding model identifier.
func (e *Embedder) Model() string { return e.config.Model }

func (e *Embedder) Dimensions() int { return e.config.Dimensions }

func (e *Embedder) Close() error { return nil }

// Embed returns the vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input text, in input order. The OpenAI
// API reports an index per datum, so out-of-order responses are reordered
// rather than rejected.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, mnemoserr.New(mnemoserr.CodeIndexRecordInvalid,
			"openai: no texts to embed")
	}
	for i, text := range texts {
		if text == "" {
			return nil, mnemoserr.Errorf(mnemoserr.CodeIndexRecordInvalid,
				"openai: empty text at position %d", i)
		}
	}

	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openaisdk.EmbeddingModel(e.config.Model),
		Dimensions: param.NewOpt(int64(e.config.Dimensions)),
	})
	if err != nil {
		return nil, e.classify(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, mnemoserr.Errorf(mnemoserr.CodeProviderResponseInvalid,
			"openai: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, datum := range resp.Data {
		if datum.Index < 0 || datum.Index >= int64(len(texts)) {
			return nil, mnemoserr.Errorf(mnemoserr.CodeProviderResponseInvalid,
				"openai: embedding index %d out of range", datum.Index)
		}
		if len(datum.Embedding) != e.config.Dimensions {
			return nil, mnemoserr.Errorf(mnemoserr.CodeProviderResponseInvalid,
				"openai: embedding width %d, want %d", len(datum.Embedding), e.config.Dimensions)
		}
		vec := make([]float32, len(datum.Embedding))
		for i, v := range datum.Embedding {
			vec[i] = float32(v)
		}
		vecs[datum.Index] = vec
	}
	for i, vec := range vecs {
		if vec == nil {
			return nil, mnemoserr.Errorf(mnemoserr.CodeProviderResponseInvalid,
				"openai: no embedding returned for position %d", i)
		}
	}

	return vecs, nil
}

// classify maps SDK and transport failures onto the provider error taxonomy.
func (e *Embedder) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return mnemoserr.Wrap(err, mnemoserr.CodeProviderTimeout,
			"openai: embedding request timed out",
			mnemoserr.FieldModel(e.config.Model))
	}
	if errors.Is(err, context.Canceled) {
		return mnemoserr.Wrap(err, mnemoserr.CodeProviderTimeout,
			"openai: embedding request canceled",
			mnemoserr.FieldModel(e.config.Model))
	}

	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
		apiErr.StatusCode != 429 {
		// Client-side API errors (bad model, bad input) are not transient.
		return mnemoserr.Wrap(err, mnemoserr.CodeProviderResponseInvalid,
			"openai: embedding request rejected",
			mnemoserr.FieldModel(e.config.Model))
	}

	return mnemoserr.Wrap(err, mnemoserr.CodeProviderUnavailable,
		"openai: embedding request failed",
		mnemoserr.FieldModel(e.config.Model))
}
