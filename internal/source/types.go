package source

import (
	"github.com/shopspring/decimal"
)

// RawTransaction is one transaction in the ledger backend's JSON shape. JSONL
// imports and the REST API share it.
type RawTransaction struct {
	ID              FlexID          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency,omitempty"`
	TransactionType string          `json:"transaction_type"`
	TransactionDate string          `json:"transaction_date"`
	Description     string          `json:"description,omitempty"`
	CategoryID      FlexID          `json:"category_id,omitempty"`
	Category        *RawCategory    `json:"category,omitempty"`
}

// RawCategory is a category in the ledger backend's JSON shape.
type RawCategory struct {
	ID          FlexID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Format is the on-disk encoding of an import file.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// DiscoveredFile represents an import file found during directory scanning.
type DiscoveredFile struct {
	Path    string
	Format  Format
	Account string // first directory under the import root, or the file stem
}
