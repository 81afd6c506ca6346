package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-extractor/internal/extraction"
)

func TestRESTClient_Extract(t *testing.T) {
	const body = `{"candidates":[{"content":{"parts":[{"text":"{}"}]}}]}`

	var gotPath, gotKey string
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &gotReq); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewRESTClient(Options{APIKey: "secret", BaseURL: srv.URL, Model: "gemini-test"}, zerolog.Nop())

	raw, err := c.Extract(context.Background(), "read this", &extraction.Image{MIMEType: "image/png", Data: []byte("png")})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if raw != body {
		t.Errorf("Extract() = %q, want the response body", raw)
	}
	if gotPath != "/v1/models/gemini-test:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("key = %q, want secret", gotKey)
	}

	if len(gotReq.Contents) != 1 || gotReq.Contents[0].Role != "user" {
		t.Fatalf("contents = %+v, want one user content", gotReq.Contents)
	}
	parts := gotReq.Contents[0].Parts
	if len(parts) != 2 || parts[0].Text != "read this" {
		t.Fatalf("parts = %+v, want prompt and inline data", parts)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/png" {
		t.Fatalf("inlineData = %+v, want image/png", parts[1].InlineData)
	}
	if parts[1].InlineData.Data != base64.StdEncoding.EncodeToString([]byte("png")) {
		t.Errorf("inlineData.data = %q, want base64 of the image", parts[1].InlineData.Data)
	}
}

func TestRESTClient_Extract_TextOnly(t *testing.T) {
	var gotReq map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewRESTClient(Options{BaseURL: srv.URL + "/"}, zerolog.Nop())
	if _, err := c.Extract(context.Background(), "just text", nil); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	contents := gotReq["contents"].([]interface{})
	parts := contents[0].(map[string]interface{})["parts"].([]interface{})
	if len(parts) != 1 {
		t.Fatalf("parts = %v, want only the text part", parts)
	}
	if _, ok := parts[0].(map[string]interface{})["inlineData"]; ok {
		t.Error("text-only request should not carry inlineData")
	}
}

func TestRESTClient_Extract_Non200(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "bad request", status: http.StatusBadRequest},
		{name: "rate limited", status: http.StatusTooManyRequests},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "created is not success", status: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			c := NewRESTClient(Options{BaseURL: srv.URL}, zerolog.Nop())
			_, err := c.Extract(context.Background(), "p", nil)

			var upErr *extraction.UpstreamError
			if !errors.As(err, &upErr) {
				t.Fatalf("Extract() error = %v, want *UpstreamError", err)
			}
			if upErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", upErr.StatusCode, tt.status)
			}
			if upErr.Body != `{"error":"nope"}` {
				t.Errorf("Body = %q", upErr.Body)
			}
		})
	}
}

func TestRESTClient_Extract_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewRESTClient(Options{BaseURL: url, ConnectTimeout: time.Second}, zerolog.Nop())
	_, err := c.Extract(context.Background(), "p", nil)

	var upErr *extraction.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Extract() error = %v, want *UpstreamError", err)
	}
	if upErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failures", upErr.StatusCode)
	}
}

func TestRESTClient_Extract_ContextBoundsRead(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewRESTClient(Options{BaseURL: srv.URL}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Extract(ctx, "p", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Extract() error = %v, want deadline exceeded", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		wantErr bool
	}{
		{kind: ""},
		{kind: KindREST},
		{kind: "grpc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			client, err := New(context.Background(), tt.kind, Options{}, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if _, ok := client.(*RESTClient); !ok {
					t.Errorf("New() = %T, want *RESTClient", client)
				}
			}
		})
	}
}
