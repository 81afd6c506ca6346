package extraction

import (
	"fmt"
	"net/http"
	"strings"
)

// Media types accepted besides image/*.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeText = "text/plain"
)

// Document is an uploaded file submitted for extraction. Text optionally
// carries text already extracted from a PDF by the caller.
type Document struct {
	Filename  string
	MediaType string
	Data      []byte
	Text      string
}

// IsImage reports whether the document is an image.
func (d Document) IsImage() bool {
	return strings.HasPrefix(d.MediaType, "image/")
}

// IsPDF reports whether the document is a PDF.
func (d Document) IsPDF() bool {
	return d.MediaType == MediaTypePDF
}

// SourceText returns the text the pattern extractors and text prompts work on.
func (d Document) SourceText() string {
	if d.Text != "" {
		return d.Text
	}
	if d.MediaType == MediaTypeText {
		return string(d.Data)
	}
	return ""
}

// ValidateDocument checks size and media type and returns the document with
// its media type normalized. A missing or generic declared type is replaced
// by the type detected from the content.
func ValidateDocument(doc Document, maxSize int64) (Document, error) {
	if maxSize <= 0 {
		maxSize = MaxDocumentSize
	}
	if len(doc.Data) == 0 {
		return doc, &ValidationError{Field: "file", Reason: "file is empty"}
	}
	if int64(len(doc.Data)) > maxSize {
		return doc, &ValidationError{Field: "file", Reason: fmt.Sprintf("file size exceeds %d bytes", maxSize)}
	}

	detected := normalizeMediaType(http.DetectContentType(doc.Data))
	declared := normalizeMediaType(doc.MediaType)
	if declared == "" || declared == "application/octet-stream" {
		declared = detected
	}

	switch {
	case strings.HasPrefix(declared, "image/"):
		if !strings.HasPrefix(detected, "image/") {
			return doc, &ValidationError{Field: "media type", Reason: fmt.Sprintf("content detected as %s, not an image", detected)}
		}
	case declared == MediaTypePDF:
		if detected != MediaTypePDF {
			return doc, &ValidationError{Field: "media type", Reason: fmt.Sprintf("content detected as %s, not a PDF", detected)}
		}
	case declared == MediaTypeText:
	default:
		return doc, &ValidationError{Field: "media type", Reason: fmt.Sprintf("unsupported media type %q", declared)}
	}

	doc.MediaType = declared
	return doc, nil
}

func normalizeMediaType(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.Index(mt, ";"); i != -1 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
