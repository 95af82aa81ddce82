package service

import (
	"fmt"

	"trade-review/internal/models"
)

// PriceTolerance is the maximum absolute difference between submitted and
// expected price still counted as a match.
const PriceTolerance = 0.01

// PriceLookup resolves an item code to its authoritative unit price.
// The second return is false when the code is unknown.
type PriceLookup func(itemCode string) (float64, bool)

type PriceMatcher struct{}

func NewPriceMatcher() *PriceMatcher {
	return &PriceMatcher{}
}

// ValidateItems cross-checks parsed items against the price list and
// derives the overall submission status. Items carrying parsing errors are
// classified as errors without a lookup. The result is deterministic for a
// given item set and price table snapshot.
func (m *PriceMatcher) ValidateItems(items []models.ParsedItem, lookup PriceLookup) models.ReconcileResult {
	result := models.ReconcileResult{
		Items:            make([]models.ClassifiedItem, 0, len(items)),
		TotalItems:       len(items),
		ValidationErrors: []string{},
	}

	hasErrors := false
	for _, item := range items {
		classified := models.ClassifiedItem{
			ParsedItem:            item,
			PriceValidationErrors: []string{},
		}

		if len(item.ValidationErrors) > 0 {
			classified.PriceMatchStatus = models.MatchStatusError
			classified.PriceValidationErrors = []string{"Item has parsing errors"}
			hasErrors = true
			result.InvalidItems++
			result.Items = append(result.Items, classified)
			continue
		}

		expected, found := lookup(*item.ItemCode)
		if !found {
			classified.PriceMatchStatus = models.MatchStatusNotFound
			classified.PriceValidationErrors = []string{"Item code not found in price list"}
			hasErrors = true
		} else {
			classified.ExpectedPrice = &expected
			diff := *item.Price - expected
			if diff < 0 {
				diff = -diff
			}
			if diff <= PriceTolerance {
				classified.PriceMatchStatus = models.MatchStatusMatch
				result.ValidItems++
			} else {
				classified.PriceMatchStatus = models.MatchStatusMismatch
				classified.PriceValidationErrors = []string{
					fmt.Sprintf("Price mismatch: Expected %.2f, got %.2f", expected, *item.Price),
				}
				hasErrors = true
				result.InvalidItems++
			}
		}

		for _, msg := range classified.PriceValidationErrors {
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("Row %d: %s", item.Row, msg))
		}
		result.Items = append(result.Items, classified)
	}

	if !hasErrors && result.ValidItems > 0 {
		result.Status = models.StatusSuccess
	} else {
		result.Status = models.StatusPending
	}
	result.RequiresReview = hasErrors

	return result
}

// GetValidationSummary reduces classified items into display counts and a
// detail list for every non-matching item, preserving original row order.
// The same report is produced immediately after reconciliation and when
// regenerated later from stored items.
func (m *PriceMatcher) GetValidationSummary(items []models.ClassifiedItem) models.ValidationSummary {
	summary := models.ValidationSummary{
		TotalItems: len(items),
		Details:    []models.SummaryDetail{},
	}

	for _, item := range items {
		code := "N/A"
		if item.ItemCode != nil {
			code = *item.ItemCode
		}

		switch item.PriceMatchStatus {
		case models.MatchStatusMatch:
			summary.SuccessfulMatches++
		case models.MatchStatusMismatch:
			summary.PriceMismatches++
			summary.Details = append(summary.Details, models.SummaryDetail{
				Row:      item.Row,
				ItemCode: code,
				Issue:    "Price mismatch",
				Expected: item.ExpectedPrice,
				Actual:   item.Price,
			})
		case models.MatchStatusNotFound:
			summary.ItemsNotFound++
			summary.Details = append(summary.Details, models.SummaryDetail{
				Row:      item.Row,
				ItemCode: code,
				Issue:    "Item not found in price list",
			})
		default:
			summary.ParsingErrors++
			summary.Details = append(summary.Details, models.SummaryDetail{
				Row:      item.Row,
				ItemCode: code,
				Issue:    "Parsing error",
				Errors:   item.ValidationErrors,
			})
		}
	}

	return summary
}
