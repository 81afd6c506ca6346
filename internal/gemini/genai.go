package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-extractor/internal/extraction"
)

// GenAIClient calls the model through the Google Gen AI SDK and re-encodes
// the reply as a generateContent response body.
type GenAIClient struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGenAIClient creates a GenAIClient for the Gemini Developer API.
func NewGenAIClient(ctx context.Context, opts Options, log zerolog.Logger) (*GenAIClient, error) {
	opts = opts.withDefaults()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(opts.ConnectTimeout),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    opts.BaseURL + "/",
			APIVersion: DefaultAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGenAIClient: create genai client: %w", err)
	}

	return &GenAIClient{client: client, model: opts.Model, log: log}, nil
}

// Extract sends the prompt and optional inline file and returns the model
// text wrapped in a response envelope.
func (c *GenAIClient) Extract(ctx context.Context, prompt string, image *extraction.Image) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	if image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: image.MIMEType,
				Data:     image.Data,
			},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &extraction.UpstreamError{StatusCode: apiErr.Code, Body: apiErr.Message, Err: err}
		}
		return "", &extraction.UpstreamError{Err: err}
	}
	if len(resp.Candidates) == 0 {
		return "", &extraction.UpstreamError{Err: errors.New("no candidates in response")}
	}

	text := resp.Text()
	c.log.Debug().Str("model", c.model).Int("chars", len(text)).Msg("GenerateContent returned")

	raw, err := extraction.EncodeEnvelope(text)
	if err != nil {
		return "", fmt.Errorf("Extract: encode envelope: %w", err)
	}
	return raw, nil
}
