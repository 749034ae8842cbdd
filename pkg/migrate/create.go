package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo %[1]s
-- +goose StatementEnd
`

// Slug lowercases name and collapses everything outside [a-z0-9] to single
// underscores.
func Slug(name string) string {
	return strings.Trim(slugStripRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes an empty goose migration into dir and returns
// its path. The version is the current UTC time, bumped past the newest
// existing file so ordering survives clock skew between developers.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := Slug(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %q: %w", dir, err)
	}

	latest, err := latestVersion(dir)
	if err != nil {
		return "", err
	}
	version := nextVersion(time.Now().UTC(), latest)

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, slug))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, migrationTemplate, slug); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

func latestVersion(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var latest int64
	for _, entry := range entries {
		match := migrationNameRe.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		if v, err := strconv.ParseInt(match[1], 10, 64); err == nil && v > latest {
			latest = v
		}
	}
	return latest, nil
}

func nextVersion(now time.Time, latest int64) string {
	candidate := now.Format(versionLayout)
	v, _ := strconv.ParseInt(candidate, 10, 64)
	if v > latest {
		return candidate
	}
	last, err := time.Parse(versionLayout, strconv.FormatInt(latest, 10))
	if err != nil {
		return strconv.FormatInt(latest+1, 10)
	}
	return last.Add(time.Second).Format(versionLayout)
}
