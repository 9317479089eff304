package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildArchivePath names an archived snapshot of a session table. Keys sort
// chronologically within a table so repeated archives never collide.
func BuildArchivePath(sessionID, tableName, extension string, archivedAt time.Time) (string, error) {
	if err := validatePathComponent(sessionID, "session id"); err != nil {
		return "", err
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	if extension == "" {
		return "", fmt.Errorf("extension is required")
	}
	ts := archivedAt.UTC()
	return path.Join(
		sessionID,
		tableName,
		fmt.Sprintf("%s.%s", ts.Format("20060102T150405Z"), extension),
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
