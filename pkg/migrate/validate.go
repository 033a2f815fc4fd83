package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// sqlFileRe is the only accepted layout: <14-digit UTC timestamp>_<snake_name>.sql.
var sqlFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

type migrationFile struct {
	Version int64
	Name    string
	Path    string
}

// scanDir lists the .sql files in dir ordered by version. Badly named files
// are returned as errors rather than skipped.
func scanDir(dir string) ([]migrationFile, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", e.Name())
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		files = append(files, migrationFile{Version: version, Name: m[2], Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDir checks migration filenames, version and name uniqueness, and
// that every file declares both goose directions.
func ValidateDir(dir string) error {
	files, err := scanDir(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	names := make(map[string]string, len(files))
	for i, f := range files {
		if i > 0 && files[i-1].Version == f.Version {
			return fmt.Errorf("duplicate migration version %d in %q and %q", f.Version, files[i-1].Path, f.Path)
		}
		if prev, ok := names[f.Name]; ok {
			return fmt.Errorf("duplicate migration name %q in %q and %q", f.Name, prev, f.Path)
		}
		names[f.Name] = f.Path

		body, err := os.ReadFile(f.Path)
		if err != nil {
			return fmt.Errorf("read file %q: %w", f.Path, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				return fmt.Errorf("migration %q missing %q", filepath.Base(f.Path), marker)
			}
		}
	}
	return nil
}
