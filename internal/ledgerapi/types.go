package ledgerapi

import (
	"time"

	"github.com/theirongolddev/spendcast/internal/model"
)

// Query filters a transaction listing. Zero fields are omitted from the
// request.
type Query struct {
	Type       model.TxType
	CategoryID string
	Since      time.Time
	Until      time.Time
}

// SyncData is the result of a full fetch. Partial data is kept when the
// category listing fails.
type SyncData struct {
	Transactions []model.Transaction
	Categories   []model.Category
	Skipped      int
	FetchedAt    time.Time
	Error        error
}
