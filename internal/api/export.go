package api

import (
	"fmt"
	"net/http"

	"github.com/lakelens/lakelens/internal/export"
	"github.com/lakelens/lakelens/internal/observability"
)

type exportRequest struct {
	Format string `json:"format"`
}

func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	pending, ok := sess.PendingAnalysis()
	if !ok {
		writeError(r.Context(), w, http.StatusConflict, "NO_PENDING_ANALYSIS", "analyze a document before exporting", false, nil)
		return
	}

	var request exportRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Format == "" {
		request.Format = export.FormatCSV
	}
	contentType, err := export.ContentType(request.Format)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), false, nil)
		return
	}

	data, err := export.Encode(pending.Data, request.Format)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), true, nil)
		return
	}
	observability.ObserveExport(request.Format)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pending.TableName+"."+request.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func handleArchive(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archiver == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "archival requires an object store", false, nil)
		return
	}
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	table := r.PathValue("table")
	if _, ok := sess.Store.GetSchema(r.Context(), table); !ok {
		writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table does not exist", false, map[string]any{"table": table})
		return
	}

	var request exportRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Format == "" {
		request.Format = export.FormatParquet
	}

	key, err := deps.Archiver.ArchiveTable(r.Context(), sess.Store, sess.ID, table, request.Format)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error(), true, map[string]any{"table": table})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "key": key, "format": request.Format})
}
