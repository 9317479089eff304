package api

import (
	"net/http"
)

func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, err := deps.Sessions.Create()
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_CREATE_FAILED", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"created_at": sess.CreatedAt,
	})
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session")
	if err := deps.Sessions.Delete(id); err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, map[string]any{"session": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "session_id": id})
}
