// Package source discovers and parses transaction imports: JSONL and CSV
// files on disk, and the backend Postgres schema.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/model"
)

// idNamespace seeds the deterministic transaction ids so re-importing the
// same record always yields the same id.
var idNamespace = uuid.MustParse("6f1c1c52-3b8e-4c1e-9d7a-2f0b8f5f4a10")

var (
	ErrMissingDate   = errors.New("missing transaction date")
	ErrBadAmount     = errors.New("amount must be a non-zero number")
	ErrUnknownTxType = errors.New("transaction_type must be income or expense")
)

// ParseResult holds the output of parsing a single import file.
type ParseResult struct {
	Transactions []model.Transaction
	Categories   []model.Category
	ParseErrors  int
	Err          error
}

// ParseFile reads an import file. Malformed records are counted and skipped;
// only I/O failures set Err.
func ParseFile(df DiscoveredFile) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()

	switch df.Format {
	case FormatCSV:
		return parseCSV(f, df)
	default:
		return parseJSONL(f, df)
	}
}

// parseJSONL deduplicates by id, keeping the last line per id so that an
// appended correction replaces the original record.
func parseJSONL(r io.Reader, df DiscoveredFile) ParseResult {
	var res ParseResult
	byID := make(map[string]int)
	cats := make(map[string]model.Category)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		var raw RawTransaction
		if err := json.Unmarshal(line, &raw); err != nil {
			res.ParseErrors++
			continue
		}
		key := string(raw.ID)
		if key == "" {
			key = df.Account + "\x00" + strconv.Itoa(lineNo) + "\x00" + string(line)
		}

		tx, err := raw.ToTransaction(df.Account, key)
		if err != nil {
			res.ParseErrors++
			continue
		}
		if raw.Category != nil && raw.Category.Name != "" {
			c := raw.Category.ToCategory()
			cats[c.ID] = c
		}

		if i, ok := byID[tx.ID]; ok {
			res.Transactions[i] = tx
			continue
		}
		byID[tx.ID] = len(res.Transactions)
		res.Transactions = append(res.Transactions, tx)
	}
	if err := scanner.Err(); err != nil {
		res.Err = err
	}

	for _, c := range cats {
		res.Categories = append(res.Categories, c)
	}
	return res
}

// parseCSV reads a headed CSV with at least date and amount columns.
// Recognized headers: date, amount, type, category, description, currency, id.
func parseCSV(r io.Reader, df DiscoveredFile) ParseResult {
	var res ParseResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res
		}
		res.Err = fmt.Errorf("reading csv header: %w", err)
		return res
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := col["date"]; !ok {
		res.Err = fmt.Errorf("csv %s: missing date column", df.Path)
		return res
	}
	if _, ok := col["amount"]; !ok {
		res.Err = fmt.Errorf("csv %s: missing amount column", df.Path)
		return res
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rowNo := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNo++
		if err != nil {
			res.ParseErrors++
			continue
		}

		amount, err := decimal.NewFromString(strings.ReplaceAll(field(rec, "amount"), ",", ""))
		if err != nil {
			res.ParseErrors++
			continue
		}
		txType := field(rec, "type")
		if txType == "" {
			txType = string(model.Income)
			if amount.IsNegative() {
				txType = string(model.Expense)
			}
		}

		raw := RawTransaction{
			ID:              FlexID(field(rec, "id")),
			Amount:          amount.Abs(),
			Currency:        field(rec, "currency"),
			TransactionType: txType,
			TransactionDate: field(rec, "date"),
			Description:     field(rec, "description"),
		}
		if name := field(rec, "category"); name != "" {
			raw.Category = &RawCategory{Name: name}
		}

		key := string(raw.ID)
		if key == "" {
			key = df.Account + "\x00" + strconv.Itoa(rowNo) + "\x00" + strings.Join(rec, ",")
		}
		tx, err := raw.ToTransaction(df.Account, key)
		if err != nil {
			res.ParseErrors++
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res
}

// ToTransaction validates raw and converts it. key identifies the record
// within src and is hashed into a stable id.
func (raw RawTransaction) ToTransaction(src, key string) (model.Transaction, error) {
	typ := model.TxType(strings.ToLower(strings.TrimSpace(raw.TransactionType)))
	if !typ.Valid() {
		return model.Transaction{}, fmt.Errorf("%w: %q", ErrUnknownTxType, raw.TransactionType)
	}
	if raw.Amount.IsZero() {
		return model.Transaction{}, ErrBadAmount
	}
	if raw.TransactionDate == "" {
		return model.Transaction{}, ErrMissingDate
	}
	at, err := ParseDate(raw.TransactionDate)
	if err != nil {
		return model.Transaction{}, err
	}

	tx := model.Transaction{
		ID:          StableID(src, key),
		ExternalID:  string(raw.ID),
		Amount:      raw.Amount.Abs(),
		Currency:    strings.ToUpper(raw.Currency),
		Type:        typ,
		CategoryID:  string(raw.CategoryID),
		Description: raw.Description,
		OccurredAt:  at,
		Source:      src,
	}
	if raw.Category != nil {
		c := raw.Category.ToCategory()
		tx.Category = c.Name
		if tx.CategoryID == "" {
			tx.CategoryID = c.ID
		}
	}
	return tx, nil
}

// ToCategory converts a raw category. Categories without an id are keyed by
// their lower-cased name.
func (rc RawCategory) ToCategory() model.Category {
	id := string(rc.ID)
	if id == "" {
		id = "name:" + strings.ToLower(strings.TrimSpace(rc.Name))
	}
	return model.Category{ID: id, Name: rc.Name, Description: rc.Description}
}

// StableID derives a deterministic UUID for a record from its source.
func StableID(src, key string) string {
	return uuid.NewSHA1(idNamespace, []byte(src+"\x00"+key)).String()
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
}

// ParseDate accepts RFC 3339 timestamps and common date-only layouts.
// Values without a zone are read in local time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for i, layout := range dateLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
