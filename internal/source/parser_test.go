package source

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/theirongolddev/spendcast/internal/model"
)

// writeImport creates a temp import file and returns a DiscoveredFile for it.
func writeImport(t *testing.T, name string, lines ...string) DiscoveredFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	format, _ := formatOf(name)
	return DiscoveredFile{Path: path, Format: format, Account: "checking"}
}

func TestParseFile_JSONLBackendShape(t *testing.T) {
	df := writeImport(t, "tx.jsonl",
		`{"id":1,"amount":120.5,"transaction_type":"expense","transaction_date":"2024-01-02T10:00:00Z","description":"groceries","category_id":3,"category":{"id":3,"name":"Food"}}`,
		`{"id":2,"amount":"2500","transaction_type":"income","transaction_date":"2024-01-03","description":"salary"}`,
	)

	result := ParseFile(df)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.ParseErrors != 0 {
		t.Fatalf("ParseErrors = %d, want 0", result.ParseErrors)
	}
	if len(result.Transactions) != 2 {
		t.Fatalf("Transactions = %d, want 2", len(result.Transactions))
	}

	first := result.Transactions[0]
	if first.Type != model.Expense || first.Amount.String() != "120.5" {
		t.Errorf("first = %s %s, want expense 120.5", first.Type, first.Amount)
	}
	if first.Category != "Food" || first.CategoryID != "3" || first.ExternalID != "1" {
		t.Errorf("first category/id = %q/%q/%q", first.Category, first.CategoryID, first.ExternalID)
	}
	if first.Source != "checking" {
		t.Errorf("Source = %q, want checking", first.Source)
	}
	if len(result.Categories) != 1 || result.Categories[0].Name != "Food" {
		t.Errorf("Categories = %+v, want [Food]", result.Categories)
	}
	if result.Transactions[1].Type != model.Income {
		t.Errorf("second type = %s, want income", result.Transactions[1].Type)
	}
}

func TestParseFile_JSONLDedupKeepsLast(t *testing.T) {
	df := writeImport(t, "tx.jsonl",
		`{"id":7,"amount":10,"transaction_type":"expense","transaction_date":"2024-01-02"}`,
		`{"id":7,"amount":15,"transaction_type":"expense","transaction_date":"2024-01-02"}`,
	)

	result := ParseFile(df)
	if len(result.Transactions) != 1 {
		t.Fatalf("Transactions = %d, want 1 (dedup)", len(result.Transactions))
	}
	if got := result.Transactions[0].Amount.String(); got != "15" {
		t.Errorf("Amount = %s, want 15", got)
	}
}

func TestParseFile_MalformedLines(t *testing.T) {
	df := writeImport(t, "tx.jsonl",
		`not json at all`,
		`{"id":1,"amount":5,"transaction_type":"expense","transaction_date":"2024-01-02"}`,
		`{"id":2,"amount":`,
		`{"id":3,"amount":5,"transaction_type":"transfer","transaction_date":"2024-01-02"}`,
		`{"id":4,"amount":0,"transaction_type":"expense","transaction_date":"2024-01-02"}`,
		`{"id":5,"amount":5,"transaction_type":"expense"}`,
		``,
	)

	result := ParseFile(df)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Transactions) != 1 {
		t.Errorf("Transactions = %d, want 1", len(result.Transactions))
	}
	if result.ParseErrors != 4 {
		t.Errorf("ParseErrors = %d, want 4", result.ParseErrors)
	}
}

func TestParseFile_CSV(t *testing.T) {
	df := writeImport(t, "bank.csv",
		`Date,Amount,Category,Description`,
		`2024-02-01,-42.10,Food,lunch`,
		`2024-02-01,"1,500.00",,salary`,
		`2024-02-02,oops,Food,bad row`,
		`2024-02-03,-8,Transport,bus`,
	)

	result := ParseFile(df)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1", result.ParseErrors)
	}
	if len(result.Transactions) != 3 {
		t.Fatalf("Transactions = %d, want 3", len(result.Transactions))
	}

	lunch := result.Transactions[0]
	if lunch.Type != model.Expense || lunch.Amount.String() != "42.1" || lunch.Category != "Food" {
		t.Errorf("lunch = %+v", lunch)
	}
	salary := result.Transactions[1]
	if salary.Type != model.Income || salary.Amount.String() != "1500" {
		t.Errorf("salary = %s %s, want income 1500", salary.Type, salary.Amount)
	}
}

func TestParseFile_CSVMissingColumns(t *testing.T) {
	df := writeImport(t, "bank.csv", `when,how much`, `2024-01-01,5`)
	if result := ParseFile(df); result.Err == nil {
		t.Fatal("expected error for csv without date column")
	}
}

func TestParseFile_StableIDs(t *testing.T) {
	lines := []string{
		`{"amount":5,"transaction_type":"expense","transaction_date":"2024-01-02"}`,
		`{"amount":5,"transaction_type":"expense","transaction_date":"2024-01-02"}`,
	}
	a := ParseFile(writeImport(t, "a.jsonl", lines...))
	b := ParseFile(writeImport(t, "a.jsonl", lines...))

	if len(a.Transactions) != 2 {
		t.Fatalf("Transactions = %d, want 2 (identical lines without id are distinct)", len(a.Transactions))
	}
	if a.Transactions[0].ID == a.Transactions[1].ID {
		t.Error("identical lines got the same id")
	}
	for i := range a.Transactions {
		if a.Transactions[i].ID != b.Transactions[i].ID {
			t.Errorf("id %d changed across imports: %s vs %s", i, a.Transactions[i].ID, b.Transactions[i].ID)
		}
	}
}

func TestParseFile_MissingFile(t *testing.T) {
	result := ParseFile(DiscoveredFile{Path: filepath.Join(t.TempDir(), "gone.jsonl"), Format: FormatJSONL})
	if result.Err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05T12:30:00Z", time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local)},
		{"2024/03/05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local)},
		{"05.03.2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local)},
		{"2024-03-05 08:00:00", time.Date(2024, 3, 5, 8, 0, 0, 0, time.Local)},
	}
	for _, c := range cases {
		got, err := ParseDate(c.in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", c.in, err)
		}
		if !got.Equal(c.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	if _, err := ParseDate("yesterday"); err == nil {
		t.Error("ParseDate accepted garbage")
	}
}

func TestFlexID(t *testing.T) {
	var v struct {
		A FlexID `json:"a"`
		B FlexID `json:"b"`
		C FlexID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":42,"b":"tx-9","c":null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != "42" || v.B != "tx-9" || v.C != "" {
		t.Fatalf("got %+v", v)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"a":42,"b":"tx-9","c":""}` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel string) {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("cash.csv")
	mustWrite("checking/2024.jsonl")
	mustWrite("checking/2025.csv")
	mustWrite("checking/notes.txt")
	mustWrite(".hidden/x.jsonl")

	files, err := ScanDir(root)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("files = %d, want 3: %+v", len(files), files)
	}
	if files[0].Account != "cash" || files[0].Format != FormatCSV {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[1].Account != "checking" || files[1].Format != FormatJSONL {
		t.Errorf("files[1] = %+v", files[1])
	}
	if n := CountAccounts(files); n != 2 {
		t.Errorf("CountAccounts = %d, want 2", n)
	}

	missing, err := ScanDir(filepath.Join(root, "nope"))
	if err != nil || missing != nil {
		t.Errorf("ScanDir(missing) = %v, %v", missing, err)
	}
}

func TestPgRowToTransaction(t *testing.T) {
	r := pgRow{id: 12, txType: "expense", date: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), categoryID: "4", category: "Rent"}
	tx, err := r.toTransaction("postgres:1")
	if err != nil {
		t.Fatal(err)
	}
	if tx.ExternalID != "12" || tx.ID != StableID("postgres:1", "12") || tx.Category != "Rent" {
		t.Errorf("tx = %+v", tx)
	}

	r.txType = "refund"
	if _, err := r.toTransaction("postgres:1"); !errors.Is(err, ErrUnknownTxType) {
		t.Errorf("err = %v, want ErrUnknownTxType", err)
	}
}

func TestWrapPQ_UndefinedTable(t *testing.T) {
	err := wrapPQ("query", &pq.Error{Code: "42P01", Message: `relation "transactions" does not exist`})
	if !errors.Is(err, ErrSchemaMissing) {
		t.Errorf("err = %v, want ErrSchemaMissing", err)
	}
	other := errors.New("connection refused")
	if err := wrapPQ("query", other); !errors.Is(err, other) {
		t.Errorf("err = %v, want wrapped original", err)
	}
}
