package models

import "github.com/shopspring/decimal"

// RecognitionTask tags the kind of answer expected from the AI collaborator.
type RecognitionTask string

const (
	TaskProductExtraction RecognitionTask = "product_extraction"
	TaskSaleExtraction    RecognitionTask = "sale_extraction"
	TaskMatchSuggestion   RecognitionTask = "match_suggestion"
)

// ExtractedProduct is a catalog candidate read from a photo or price list.
type ExtractedProduct struct {
	Name     string          `json:"name" validate:"required"`
	SKU      string          `json:"sku"`
	Category string          `json:"category" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"gte=0"`
}

// ExtractedSale is a sale line read from a handwritten or printed note.
type ExtractedSale struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	Value     decimal.Decimal `json:"value"`
}

// MatchSuggestion identifies the photographed product within the catalog.
type MatchSuggestion struct {
	MatchID        string   `json:"matchId,omitempty"`
	SuggestionsIDs []string `json:"suggestionsIds,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

// RecognitionResult is the validated, tagged answer. Exactly one payload
// field is populated, selected by Task.
type RecognitionResult struct {
	Task     RecognitionTask    `json:"task"`
	Products []ExtractedProduct `json:"products,omitempty"`
	Sales    []ExtractedSale    `json:"sales,omitempty"`
	Match    *MatchSuggestion   `json:"match,omitempty"`
	Dropped  []string           `json:"dropped,omitempty"`
}
