package extraction

import (
	"errors"
	"testing"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj")
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name     string
		doc      Document
		maxSize  int64
		wantType string
		wantErr  bool
	}{
		{name: "png", doc: Document{MediaType: "image/png", Data: pngBytes}, wantType: "image/png"},
		{name: "pdf", doc: Document{MediaType: "application/pdf", Data: pdfBytes}, wantType: MediaTypePDF},
		{name: "octet stream resolved from content", doc: Document{MediaType: "application/octet-stream", Data: pdfBytes}, wantType: MediaTypePDF},
		{name: "missing type resolved from content", doc: Document{Data: pngBytes}, wantType: "image/png"},
		{name: "text with charset", doc: Document{MediaType: "text/plain; charset=utf-8", Data: []byte("Coffee $4.75")}, wantType: MediaTypeText},
		{name: "empty", doc: Document{MediaType: "image/png"}, wantErr: true},
		{name: "too large", doc: Document{MediaType: "image/png", Data: pngBytes}, maxSize: 4, wantErr: true},
		{name: "declared image but pdf content", doc: Document{MediaType: "image/jpeg", Data: pdfBytes}, wantErr: true},
		{name: "declared pdf but image content", doc: Document{MediaType: "application/pdf", Data: pngBytes}, wantErr: true},
		{name: "unsupported", doc: Document{MediaType: "application/zip", Data: []byte("PK\x03\x04")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateDocument(tt.doc, tt.maxSize)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateDocument() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("ValidateDocument() error %T, want *ValidationError", err)
				}
				return
			}
			if got.MediaType != tt.wantType {
				t.Errorf("MediaType = %q, want %q", got.MediaType, tt.wantType)
			}
		})
	}
}

func TestDocument_SourceText(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{name: "plain text body", doc: Document{MediaType: MediaTypeText, Data: []byte("hello")}, want: "hello"},
		{name: "explicit text wins", doc: Document{MediaType: MediaTypePDF, Data: pdfBytes, Text: "extracted"}, want: "extracted"},
		{name: "pdf without text", doc: Document{MediaType: MediaTypePDF, Data: pdfBytes}, want: ""},
		{name: "image", doc: Document{MediaType: "image/png", Data: pngBytes}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.SourceText(); got != tt.want {
				t.Errorf("SourceText() = %q, want %q", got, tt.want)
			}
		})
	}
}
