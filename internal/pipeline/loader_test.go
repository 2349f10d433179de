package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/spendcast/internal/store"
)

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func importDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "checking", "2024.jsonl"),
		`{"id":1,"amount":12,"transaction_type":"expense","transaction_date":"2024-01-02","category":{"id":1,"name":"Food"}}`,
		`{"id":2,"amount":3000,"transaction_type":"income","transaction_date":"2024-01-03"}`,
		`{"id":3,`,
	)
	writeFile(t, filepath.Join(dir, "card.csv"),
		`date,amount,category`,
		`2024-01-04,-25,Transport`,
	)
	return dir
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLoad(t *testing.T) {
	var calls atomic.Int32
	result, err := Load(importDir(t), func(current, total int) {
		calls.Add(1)
		if total != 2 {
			t.Errorf("progress total = %d, want 2", total)
		}
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if result.TotalFiles != 2 || result.ParsedFiles != 2 {
		t.Errorf("files = %d/%d, want 2/2", result.ParsedFiles, result.TotalFiles)
	}
	if result.AccountCount != 2 {
		t.Errorf("AccountCount = %d, want 2", result.AccountCount)
	}
	if len(result.Transactions) != 3 {
		t.Errorf("Transactions = %d, want 3", len(result.Transactions))
	}
	if result.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1", result.ParseErrors)
	}
	if len(result.Categories) != 1 {
		t.Errorf("Categories = %d, want 1", len(result.Categories))
	}
	if calls.Load() != 2 {
		t.Errorf("progress calls = %d, want 2", calls.Load())
	}
}

func TestLoad_MissingDir(t *testing.T) {
	result, err := Load(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if result.TotalFiles != 0 {
		t.Errorf("TotalFiles = %d, want 0", result.TotalFiles)
	}
}

func TestSyncDir_Incremental(t *testing.T) {
	dir := importDir(t)
	ledger, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer func() { _ = ledger.Close() }()

	first, err := SyncDir(dir, ledger, quietLogger(), nil)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.Reparsed != 2 || first.CacheHits != 0 || first.Imported != 3 {
		t.Errorf("first = %+v", first)
	}

	second, err := SyncDir(dir, ledger, quietLogger(), nil)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.Reparsed != 0 || second.CacheHits != 2 {
		t.Errorf("second = %+v, want all cache hits", second)
	}
	if n, _ := ledger.TransactionCount(); n != 3 {
		t.Errorf("TransactionCount = %d, want 3", n)
	}

	if err := os.Remove(filepath.Join(dir, "card.csv")); err != nil {
		t.Fatal(err)
	}
	third, err := SyncDir(dir, ledger, quietLogger(), nil)
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if third.Removed != 1 {
		t.Errorf("Removed = %d, want 1", third.Removed)
	}
	if n, _ := ledger.TransactionCount(); n != 2 {
		t.Errorf("TransactionCount after removal = %d, want 2", n)
	}
}
