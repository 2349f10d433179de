package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/source"
)

// ImportResult holds the output of parsing an import directory.
type ImportResult struct {
	Transactions []model.Transaction
	Categories   []model.Category
	TotalFiles   int
	ParsedFiles  int
	ParseErrors  int
	FileErrors   int
	AccountCount int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers and parses every import file under dir.
// It uses a bounded worker pool for parallel parsing.
func Load(dir string, progressFn ProgressFunc) (*ImportResult, error) {
	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	result := &ImportResult{
		TotalFiles:   len(files),
		AccountCount: source.CountAccounts(files),
	}
	if len(files) == 0 {
		return result, nil
	}

	results := parseAll(files, 0, len(files), progressFn)

	cats := make(map[string]model.Category)
	for _, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors
		result.Transactions = append(result.Transactions, pr.Transactions...)
		for _, c := range pr.Categories {
			cats[c.ID] = c
		}
	}
	for _, c := range cats {
		result.Categories = append(result.Categories, c)
	}

	return result, nil
}

// parseAll parses files with a bounded worker pool. Results keep the input
// order. Progress is reported as offset+n of total.
func parseAll(files []source.DiscoveredFile, offset, total int, progressFn ProgressFunc) []source.ParseResult {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(offset+int(n), total)
				}
			}
		}()
	}

	wg.Wait()
	return results
}
