package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/lakelens/lakelens/internal/inference"
	"github.com/lakelens/lakelens/internal/observability"
)

func handleAnalyze(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Inference == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AI_NOT_CONFIGURED", "document analysis requires a configured model", false, nil)
		return
	}
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "expected a multipart upload with a file field", false, map[string]any{"details": err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_REQUIRED", "file field is required", false, nil)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_READ_FAILED", err.Error(), false, nil)
		return
	}
	if len(data) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_EMPTY", "uploaded file is empty", false, nil)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	result, err := deps.Inference.AnalyzeDocument(r.Context(), data, mimeType, header.Filename)
	if err != nil {
		var infErr *inference.InferenceError
		if errors.As(err, &infErr) {
			writeError(r.Context(), w, http.StatusUnprocessableEntity, "ANALYSIS_FAILED", infErr.Error(), true, map[string]any{"filename": header.Filename})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "ANALYSIS_FAILED", err.Error(), true, nil)
		return
	}

	sess.SetPendingAnalysis(result)
	writeJSON(w, http.StatusOK, result)
}

func handleRepair(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Inference == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AI_NOT_CONFIGURED", "data repair requires a configured model", false, nil)
		return
	}
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	pending, ok := sess.PendingAnalysis()
	if !ok {
		writeError(r.Context(), w, http.StatusConflict, "NO_PENDING_ANALYSIS", "analyze a document before repairing", false, nil)
		return
	}
	if len(pending.Issues) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "NO_ISSUES", "pending analysis reported no quality issues", false, nil)
		return
	}

	repaired, err := deps.Inference.RepairRecords(r.Context(), pending.Data, pending.Issues)
	if err != nil {
		var repairErr *inference.RepairError
		if errors.As(err, &repairErr) {
			writeError(r.Context(), w, http.StatusUnprocessableEntity, "REPAIR_FAILED", repairErr.Error(), true, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "REPAIR_FAILED", err.Error(), true, nil)
		return
	}

	pending.Data = repaired
	pending.Issues = nil
	sess.SetPendingAnalysis(pending)
	writeJSON(w, http.StatusOK, pending)
}

func handleLoad(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	pending, ok := sess.PendingAnalysis()
	if !ok {
		writeError(r.Context(), w, http.StatusConflict, "NO_PENDING_ANALYSIS", "analyze a document before loading", false, nil)
		return
	}

	_, existed := sess.Store.GetSchema(r.Context(), pending.TableName)
	if err := sess.Store.CreateTable(r.Context(), pending.TableName, pending.Columns); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "TABLE_CREATE_FAILED", err.Error(), true, map[string]any{"table": pending.TableName})
		return
	}
	if !existed {
		observability.IncrementTablesCreated()
	}

	if err := sess.Store.LoadData(r.Context(), pending.TableName, pending.Data); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "LOAD_FAILED", err.Error(), true, map[string]any{"table": pending.TableName})
		return
	}
	observability.ObserveRowsLoaded(len(pending.Data))
	sess.ClearPendingAnalysis()

	writeJSON(w, http.StatusOK, map[string]any{
		"table_name":  pending.TableName,
		"rows_loaded": len(pending.Data),
	})
}
