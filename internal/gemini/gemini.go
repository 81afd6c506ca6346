// Package gemini provides extraction.Extractor implementations backed by
// Google's Gemini models.
package gemini

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-extractor/internal/extraction"
)

// Client kinds accepted by New.
const (
	KindREST = "rest"
	KindSDK  = "sdk"
)

// New returns the client selected by kind. An empty kind selects the REST client.
func New(ctx context.Context, kind string, opts Options, log zerolog.Logger) (extraction.Extractor, error) {
	switch kind {
	case "", KindREST:
		return NewRESTClient(opts, log), nil
	case KindSDK:
		client, err := NewGenAIClient(ctx, opts, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("New: unknown client kind %q", kind)
	}
}
