package api

import (
	"net/http"
	"strings"

	"github.com/lakelens/lakelens/internal/analyst"
)

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	tables := sess.Store.ListTables(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func handleGetTableSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	table := r.PathValue("table")
	columns, ok := sess.Store.GetSchema(r.Context(), table)
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table does not exist", false, map[string]any{"table": table})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "columns": columns})
}

func handleDeleteTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	table := r.PathValue("table")
	dropped := sess.Store.DropTable(r.Context(), table)
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "dropped": dropped})
}

func handleDropAllTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	dropped := sess.Store.DropAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"dropped": dropped})
}

func handleJoins(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}

	var names []string
	if raw := r.URL.Query().Get("tables"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				names = append(names, trimmed)
			}
		}
	} else {
		for _, info := range sess.Store.ListTables(r.Context()) {
			names = append(names, info.TableName)
		}
	}

	schemas := make([]analyst.TableSchema, 0, len(names))
	for _, name := range names {
		columns, ok := sess.Store.GetSchema(r.Context(), name)
		if !ok {
			writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table does not exist", false, map[string]any{"table": name})
			return
		}
		schemas = append(schemas, analyst.TableSchema{TableName: name, Columns: columns})
	}

	writeJSON(w, http.StatusOK, map[string]any{"candidates": analyst.DetectJoins(schemas)})
}
