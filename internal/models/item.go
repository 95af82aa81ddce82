package models

// MatchStatus classifies a packing list item after price reconciliation.
type MatchStatus string

const (
	MatchStatusMatch    MatchStatus = "match"
	MatchStatusMismatch MatchStatus = "mismatch"
	MatchStatusNotFound MatchStatus = "not_found"
	MatchStatusError    MatchStatus = "error"
)

// ParsedItem is one packing list row as extracted from the spreadsheet.
// Fields that are absent or fail numeric coercion stay nil; the row itself
// is never dropped, the problems accumulate in ValidationErrors instead.
type ParsedItem struct {
	Row              int      `json:"row"`
	ItemCode         *string  `json:"item_code"`
	Quantity         *float64 `json:"quantity"`
	Price            *float64 `json:"price"`
	ValidationErrors []string `json:"validation_errors"`
}

// ClassifiedItem is a ParsedItem after reconciliation against the price list.
type ClassifiedItem struct {
	ParsedItem
	PriceMatchStatus      MatchStatus `json:"price_match_status"`
	ExpectedPrice         *float64    `json:"expected_price,omitempty"`
	PriceValidationErrors []string    `json:"price_validation_errors"`
}

// ItemEdit carries the fields of a single item a user wants to change.
// Nil fields are left untouched.
type ItemEdit struct {
	ItemCode *string  `json:"item_code"`
	Quantity *float64 `json:"quantity"`
	Price    *float64 `json:"price"`
}
