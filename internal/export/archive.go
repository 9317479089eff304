package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lakelens/lakelens/internal/lakehouse"
	"github.com/lakelens/lakelens/internal/observability"
	"github.com/lakelens/lakelens/internal/storage"
)

// Archiver snapshots session tables into an object store.
type Archiver struct {
	Objects storage.ObjectStore
	Logger  *slog.Logger
}

func NewArchiver(objects storage.ObjectStore, logger *slog.Logger) *Archiver {
	return &Archiver{Objects: objects, Logger: logger}
}

// ArchiveTable reads the full table, encodes it in the requested format, and
// writes it under <session>/<table>/<timestamp>.<format>. It returns the
// object key of the snapshot.
func (a *Archiver) ArchiveTable(ctx context.Context, store *lakehouse.Store, sessionID, table, format string) (string, error) {
	contentType, err := ContentType(format)
	if err != nil {
		return "", err
	}

	// Building the key first also validates the session and table names
	// before any of them reaches a SQL statement.
	key, err := storage.BuildArchivePath(sessionID, table, format, time.Now())
	if err != nil {
		return "", err
	}

	result, err := store.Execute(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return "", fmt.Errorf("read table %q: %w", table, err)
	}

	data, err := Encode(ResultRecords(result), format)
	if err != nil {
		return "", fmt.Errorf("encode %s snapshot: %w", format, err)
	}
	info, err := a.Objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("archive table %q: %w", table, err)
	}

	observability.ObserveExport(format)
	if a.Logger != nil {
		a.Logger.InfoContext(ctx, "table_archived",
			slog.String("table", table),
			slog.String("key", info.Key),
			slog.Int64("bytes", info.Size),
			slog.Int("rows", len(result.Rows)),
		)
	}
	return info.Key, nil
}
