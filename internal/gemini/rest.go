package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-extractor/internal/extraction"
)

// Default connection settings.
const (
	DefaultBaseURL        = "https://generativelanguage.googleapis.com"
	DefaultAPIVersion     = "v1"
	DefaultConnectTimeout = 30 * time.Second
)

// Options configures a client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	ConnectTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Model == "" {
		o.Model = extraction.DefaultModelName
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	return o
}

// newHTTPClient returns a client that bounds connection setup only. Reading
// the response is bounded by the request context.
func newHTTPClient(connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connectTimeout,
		},
	}
}

type generateRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Role  string        `json:"role"`
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// RESTClient calls the generateContent endpoint directly over HTTP.
type RESTClient struct {
	opts Options
	http *http.Client
	log  zerolog.Logger
}

// NewRESTClient creates a RESTClient.
func NewRESTClient(opts Options, log zerolog.Logger) *RESTClient {
	opts = opts.withDefaults()
	return &RESTClient{
		opts: opts,
		http: newHTTPClient(opts.ConnectTimeout),
		log:  log,
	}
}

// Extract posts the prompt and optional inline file and returns the response
// body. Any status other than 200 is an *extraction.UpstreamError.
func (c *RESTClient) Extract(ctx context.Context, prompt string, image *extraction.Image) (string, error) {
	body, err := json.Marshal(buildRequest(prompt, image))
	if err != nil {
		return "", fmt.Errorf("Extract: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("Extract: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &extraction.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &extraction.UpstreamError{StatusCode: resp.StatusCode, Err: err}
	}

	c.log.Debug().
		Str("model", c.opts.Model).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("generateContent returned")

	if resp.StatusCode != http.StatusOK {
		return "", &extraction.UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return string(respBody), nil
}

func (c *RESTClient) endpoint() string {
	return fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		c.opts.BaseURL, DefaultAPIVersion, url.PathEscape(c.opts.Model), url.QueryEscape(c.opts.APIKey))
}

func buildRequest(prompt string, image *extraction.Image) generateRequest {
	parts := []requestPart{{Text: prompt}}
	if image != nil {
		parts = append(parts, requestPart{InlineData: &inlineData{
			MIMEType: image.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(image.Data),
		}})
	}
	return generateRequest{Contents: []requestContent{{Role: "user", Parts: parts}}}
}
