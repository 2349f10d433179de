package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDir walks dir and discovers every JSONL and CSV import file. A missing
// directory yields no files and no error.
func ScanDir(dir string) ([]DiscoveredFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		format, ok := formatOf(d.Name())
		if !ok {
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		parts := strings.Split(rel, string(filepath.Separator))
		account := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if len(parts) >= 2 {
			account = parts[0]
		}

		files = append(files, DiscoveredFile{
			Path:    path,
			Format:  format,
			Account: account,
		})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

func formatOf(name string) (Format, bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, true
	case ".csv":
		return FormatCSV, true
	default:
		return "", false
	}
}

// CountAccounts returns the number of unique accounts in a set of discovered files.
func CountAccounts(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.Account] = struct{}{}
	}
	return len(seen)
}
