// Package model defines domain types for spendcast ledgers and forecasts.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType is the direction of a transaction.
type TxType string

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Transaction is one ledger entry. Amount is always positive; Type decides
// whether it adds to income or expense.
type Transaction struct {
	ID          string
	ExternalID  string
	Amount      decimal.Decimal
	Currency    string
	Type        TxType
	CategoryID  string
	Category    string
	Description string
	OccurredAt  time.Time
	Source      string
}

// Category is a user-defined spending or income bucket.
type Category struct {
	ID          string
	Name        string
	Description string
}
