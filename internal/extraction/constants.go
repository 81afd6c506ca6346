package extraction

// Defaults shared by the extractors and the orchestrator.
const (
	// DefaultModelName is the Gemini model used when none is configured.
	DefaultModelName = "gemini-1.5-flash"

	// MaxDocumentSize is the largest document accepted for extraction (10 MB).
	MaxDocumentSize = 10 * 1024 * 1024

	// DefaultCurrency is assigned when a dollar or bare two-decimal amount is recognised.
	DefaultCurrency = "USD"

	// DefaultDescription is used when no line of the document looks like a description.
	DefaultDescription = "Document processing"

	// DefaultTransactionDescription is used for statement rows without a usable description.
	DefaultTransactionDescription = "Transaction"
)

// Confidence labels attached to records, kept stable for downstream consumers.
const (
	LabelModelParsed     = "95%"
	LabelModelRepaired   = "Repaired model output"
	LabelPatternFallback = "Pattern fallback"
	LabelPatternOnly     = "Pattern extraction"
	LabelParsingFailed   = "0% (Parsing Failed)"
	LabelNoContent       = "0% (No content)"
	LabelProcessingFail  = "0% (Processing Failed)"
)
