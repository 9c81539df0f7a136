package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// dialectDirs are the subdirectories of DefaultDir; every migration exists in both.
var dialectDirs = []string{"postgres", "sqlite"}

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s (%[2]s)
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s (%[2]s)
-- +goose StatementEnd
`

// CreateSQLMigration scaffolds the postgres and sqlite twins of a new goose
// migration under root, both named <YYYYMMDDHHMMSS>_<name>.sql, and returns
// their paths. Nothing is written when either file already exists.
func CreateSQLMigration(root, name string, now time.Time) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("migration root dir is required")
	}
	slug := migrationSlug(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	filename := fmt.Sprintf("%s_%s.sql", now.UTC().Format("20060102150405"), slug)

	paths := make([]string, 0, len(dialectDirs))
	for _, dialect := range dialectDirs {
		p := filepath.Join(root, dialect, filename)
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("migration already exists: %s", p)
		}
		paths = append(paths, p)
	}

	for i, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(p), err)
		}
		body := fmt.Sprintf(migrationTemplate, slug, dialectDirs[i])
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", p, err)
		}
	}
	return paths, nil
}

// migrationSlug lowercases name and collapses anything outside [a-z0-9] to
// single underscores, matching the filename check in ValidateDir.
func migrationSlug(name string) string {
	slug := unsafeNameChars.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(slug, "_")
}
