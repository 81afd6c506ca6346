package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-extractor/internal/api/middleware"
	"github.com/dvloznov/finance-extractor/internal/extraction"
	infra "github.com/dvloznov/finance-extractor/internal/infra/bigquery"
)

// Page size bounds for GET /api/transactions.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// TransactionsHandler handles statement extraction and transaction endpoints.
type TransactionsHandler struct {
	extractor StatementExtractor
	store     TransactionStore
	maxSize   int64
	log       zerolog.Logger
	today     func() civil.Date
}

// NewTransactionsHandler creates a new transactions handler. A nil store
// disables the save, list and summary endpoints.
func NewTransactionsHandler(extractor StatementExtractor, store TransactionStore, maxSize int64, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		extractor: extractor,
		store:     store,
		maxSize:   maxSize,
		log:       log,
		today:     func() civil.Date { return civil.DateOf(time.Now()) },
	}
}

// Extract handles POST /api/transactions/extract
func (h *TransactionsHandler) Extract(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r, h.maxSize)
	if !ok {
		return
	}

	records, err := h.extractor.ExtractTransactions(r.Context(), doc)
	if err != nil {
		writeExtractionError(w, h.log, err)
		return
	}
	if records == nil {
		records = []extraction.TransactionRecord{}
	}

	h.log.Info().Str("filename", doc.Filename).Int("count", len(records)).Msg("Statement extracted")

	// Return array directly for frontend compatibility
	middleware.WriteJSON(w, http.StatusOK, records)
}

// Save handles POST /api/transactions/save
func (h *TransactionsHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	var records []extraction.TransactionRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(records) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "No transactions to save")
		return
	}
	for i, rec := range records {
		if rec.Type != extraction.TransactionIncome && rec.Type != extraction.TransactionExpense {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("transaction %d: type must be INCOME or EXPENSE", i))
			return
		}
		if !rec.Date.IsValid() {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("transaction %d: invalid date", i))
			return
		}
	}

	src := infra.Source{DocumentID: uuid.NewString()}
	ids, err := h.store.SaveTransactions(r.Context(), records, src)
	if err != nil {
		h.log.Error().Err(err).Int("count", len(records)).Msg("Failed to save transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": src.DocumentID,
		"ids":         ids,
		"count":       len(ids),
	})
}

// Summary handles GET /api/transactions/summary
// start and end are ISO dates; the default range is the year up to today.
func (h *TransactionsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	records, err := h.store.TransactionsBetween(r.Context(), start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, extraction.Summarize(records))
}

// List handles GET /api/transactions?start=&end=&limit=&offset=
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	limit := defaultListLimit
	if s := query.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxListLimit {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}
	offset := 0
	if s := query.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	records, err := h.store.TransactionsBetween(r.Context(), start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	total := len(records)
	page := []extraction.TransactionRecord{}
	if offset < total {
		page = records[offset:min(offset+limit, total)]
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"start":        start,
		"end":          end,
		"total":        total,
		"count":        len(page),
		"offset":       offset,
		"transactions": page,
	})
}

// dateRange reads the start and end query parameters. end defaults to today
// and start to one year before end. It writes a 400 and returns false when
// either is malformed or start is after end.
func (h *TransactionsHandler) dateRange(w http.ResponseWriter, r *http.Request) (start, end civil.Date, ok bool) {
	query := r.URL.Query()
	end = h.today()
	if s := query.Get("end"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end date format")
			return start, end, false
		}
		end = d
	}
	start = civil.DateOf(end.In(time.UTC).AddDate(-1, 0, 0))
	if s := query.Get("start"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start date format")
			return start, end, false
		}
		start = d
	}
	if end.Before(start) {
		middleware.WriteError(w, http.StatusBadRequest, "start must not be after end")
		return start, end, false
	}
	return start, end, true
}
