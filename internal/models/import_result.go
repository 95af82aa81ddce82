package models

import "time"

// TableImportResult is the outcome of a price list or duty rate import.
// Rows that fail validation are excluded from Values and reported in
// RowErrors; the remaining rows are still applied.
type TableImportResult struct {
	Values     map[string]float64 `json:"-"`
	RowErrors  []string           `json:"errors"`
	TotalRows  int                `json:"total_rows"`
	ValidCount int                `json:"valid_count"`
	ImportTime time.Time          `json:"import_time"`
}

// ReconcileResult is the outcome of checking a full item set against the
// price list.
type ReconcileResult struct {
	Status           SubmissionStatus `json:"status"`
	Items            []ClassifiedItem `json:"items"`
	TotalItems       int              `json:"total_items"`
	ValidItems       int              `json:"valid_items"`
	InvalidItems     int              `json:"invalid_items"`
	ValidationErrors []string         `json:"validation_errors"`
	RequiresReview   bool             `json:"requires_review"`
}

// ValidationSummary is the display report regenerated from classified items.
type ValidationSummary struct {
	TotalItems        int             `json:"total_items"`
	SuccessfulMatches int             `json:"successful_matches"`
	PriceMismatches   int             `json:"price_mismatches"`
	ItemsNotFound     int             `json:"items_not_found"`
	ParsingErrors     int             `json:"parsing_errors"`
	Details           []SummaryDetail `json:"details"`
}

// SummaryDetail is one non-matching item in the summary, in original row order.
type SummaryDetail struct {
	Row      int      `json:"row"`
	ItemCode string   `json:"item_code"`
	Issue    string   `json:"issue"`
	Expected *float64 `json:"expected,omitempty"`
	Actual   *float64 `json:"actual,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}
