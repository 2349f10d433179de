package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/spendcast/internal/source"
	"github.com/theirongolddev/spendcast/internal/store"
)

// SyncResult reports what an incremental import did.
type SyncResult struct {
	TotalFiles   int
	CacheHits    int
	Reparsed     int
	Removed      int
	Imported     int
	ParseErrors  int
	FileErrors   int
	AccountCount int
}

// SyncDir discovers import files under dir, diffs them against the
// ledger's file tracker, parses only new or changed files, and replaces
// their transactions in the ledger. Tracked files under dir that no longer
// exist have their transactions removed.
func SyncDir(dir string, ledger *store.Ledger, log *logrus.Logger, progressFn ProgressFunc) (*SyncResult, error) {
	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	result := &SyncResult{
		TotalFiles:   len(files),
		AccountCount: source.CountAccounts(files),
	}

	tracked, err := ledger.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading file tracker: %w", err)
	}

	// Diff: partition into changed and unchanged
	var toReparse []source.DiscoveredFile
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.Path] = struct{}{}
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}

		cached, ok := tracked[f.Path]
		if ok && cached.MtimeNs == info.ModTime().UnixNano() && cached.SizeBytes == info.Size() {
			result.CacheHits++
		} else {
			toReparse = append(toReparse, f)
		}
	}
	result.Reparsed = len(toReparse)

	prefix := filepath.Clean(dir) + string(filepath.Separator)
	for path := range tracked {
		if _, ok := seen[path]; ok || !strings.HasPrefix(path, prefix) {
			continue
		}
		if err := ledger.DeleteFileTracker(path); err != nil {
			return nil, fmt.Errorf("forgetting %s: %w", path, err)
		}
		result.Removed++
	}

	if len(toReparse) == 0 {
		return result, nil
	}

	results := parseAll(toReparse, result.CacheHits, result.TotalFiles, progressFn)
	for i, pr := range results {
		path := toReparse[i].Path
		if pr.Err != nil {
			result.FileErrors++
			log.WithFields(logrus.Fields{"file": path, "error": pr.Err}).Warn("import file unreadable")
			continue
		}
		result.ParseErrors += pr.ParseErrors

		info, err := os.Stat(path)
		if err != nil {
			result.FileErrors++
			continue
		}
		if err := ledger.SaveFileImport(path, pr.Transactions, pr.Categories, info.ModTime().UnixNano(), info.Size()); err != nil {
			return nil, fmt.Errorf("saving %s: %w", path, err)
		}
		result.Imported += len(pr.Transactions)
	}

	return result, nil
}
