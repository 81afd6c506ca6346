package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-extractor/internal/api/middleware"
	"github.com/dvloznov/finance-extractor/internal/extraction"
	infra "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
	"github.com/dvloznov/finance-extractor/internal/jobs"
	"github.com/dvloznov/finance-extractor/internal/storage"
)

// Processing methods reported with a scan result.
const (
	MethodPattern = "Pattern matching"
	MethodFailed  = "Default (Processing Failed)"
)

// ScanResponse is an extraction record plus metadata about the uploaded file.
type ScanResponse struct {
	extraction.ExtractionRecord

	FileName         string `json:"fileName"`
	FileType         string `json:"fileType"`
	FileSize         int64  `json:"fileSize"`
	ScanTimestamp    int64  `json:"scanTimestamp"`
	ProcessingMethod string `json:"processingMethod"`
	DocumentID       string `json:"documentId"`
	SourceURI        string `json:"sourceUri,omitempty"`
	ReceiptID        string `json:"receiptId,omitempty"`
}

// BillScanHandler handles receipt and invoice scanning endpoints.
type BillScanHandler struct {
	extractor ReceiptExtractor
	uploader  Uploader
	bucket    string
	store     ReceiptStore
	maxSize   int64
	modelName string
	log       zerolog.Logger
	now       func() time.Time
}

// NewBillScanHandler creates a new bill scan handler. uploader and store may
// be nil to skip keeping the original file and persisting the record.
func NewBillScanHandler(extractor ReceiptExtractor, uploader Uploader, bucket string, store ReceiptStore, maxSize int64, modelName string, log zerolog.Logger) *BillScanHandler {
	if maxSize <= 0 {
		maxSize = extraction.MaxDocumentSize
	}
	if modelName == "" {
		modelName = extraction.DefaultModelName
	}
	return &BillScanHandler{
		extractor: extractor,
		uploader:  uploader,
		bucket:    bucket,
		store:     store,
		maxSize:   maxSize,
		modelName: modelName,
		log:       log,
		now:       time.Now,
	}
}

// Scan handles POST /api/bill-scan/scan
func (h *BillScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r, h.maxSize)
	if !ok {
		return
	}
	ctx := r.Context()

	rec, err := h.extractor.ExtractReceipt(ctx, doc)
	if err != nil {
		writeExtractionError(w, h.log, err)
		return
	}

	resp := ScanResponse{
		ExtractionRecord: rec,
		FileName:         doc.Filename,
		FileType:         doc.MediaType,
		FileSize:         int64(len(doc.Data)),
		ScanTimestamp:    h.now().UnixMilli(),
		ProcessingMethod: h.processingMethod(rec),
		DocumentID:       uuid.NewString(),
	}
	log := h.log.With().Str("document_id", resp.DocumentID).Logger()

	if h.uploader != nil && h.bucket != "" {
		object := storage.ObjectName(string(jobs.KindReceipt), resp.DocumentID, doc.Filename)
		uri, err := h.uploader.Upload(ctx, h.bucket, object, doc.MediaType, doc.Data)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to keep original document")
		} else {
			resp.SourceURI = uri
		}
	}

	if h.store != nil {
		src := infra.Source{
			DocumentID: resp.DocumentID,
			URI:        resp.SourceURI,
			Filename:   doc.Filename,
			MediaType:  doc.MediaType,
		}
		id, err := h.store.SaveReceipt(ctx, rec, src)
		if err != nil {
			log.Error().Err(err).Msg("Failed to save receipt")
		} else {
			resp.ReceiptID = id
		}
	}

	log.Info().
		Str("filename", doc.Filename).
		Str("confidence", string(rec.Confidence)).
		Msg("Bill scanned")

	middleware.WriteJSON(w, http.StatusOK, resp)
}

func (h *BillScanHandler) processingMethod(rec extraction.ExtractionRecord) string {
	switch rec.Confidence {
	case extraction.ConfidenceHigh:
		return "Gemini API (" + h.modelName + ")"
	case extraction.ConfidenceLow:
		if rec.ConfidenceLabel == extraction.LabelModelRepaired {
			return "Gemini API (" + h.modelName + ", repaired output)"
		}
		return MethodPattern
	default:
		return MethodFailed
	}
}

// Info handles GET /api/bill-scan/info
func (h *BillScanHandler) Info(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"supportedFormats": []string{"JPEG", "PNG", "GIF", "WEBP", "PDF", "TXT"},
		"maxFileSize":      h.maxSize,
		"categories":       extraction.Taxonomy,
		"features": []string{
			"Merchant name extraction",
			"Amount and currency detection",
			"Date recognition",
			"Category classification",
			"Invoice number extraction",
			"Tax amount detection",
			"Payment method identification",
			"Item list extraction",
		},
		"aiModel": h.modelName,
	})
}

// Health handles GET /api/bill-scan/health
func (h *BillScanHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"service":    "Bill Scan Service",
		"aiProvider": "Google Gemini",
		"timestamp":  h.now().UnixMilli(),
	})
}
