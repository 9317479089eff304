package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/lakelens/lakelens/internal/analyst"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

type chatRequest struct {
	Question string   `json:"question"`
	Tables   []string `json:"tables"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}

	var request queryRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := sess.Store.Execute(r.Context(), request.SQL)
	if err != nil {
		// Execution failures are part of the response, not transport errors.
		writeJSON(w, http.StatusOK, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns":     result.Columns,
		"rows":        result.Rows,
		"duration_ms": result.Duration.Milliseconds(),
	})
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Analyst == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AI_NOT_CONFIGURED", "chat requires a configured model", false, nil)
		return
	}
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}

	var request chatRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	tables := request.Tables
	if len(tables) == 0 {
		for _, info := range sess.Store.ListTables(r.Context()) {
			tables = append(tables, info.TableName)
		}
	}
	if len(tables) == 0 {
		writeError(r.Context(), w, http.StatusConflict, "NO_TABLES", "load data before asking questions", false, nil)
		return
	}

	sess.AppendMessage(analyst.ChatMessage{
		Role:      analyst.RoleUser,
		Content:   request.Question,
		CreatedAt: time.Now().UTC(),
	})

	message, err := deps.Analyst.Ask(r.Context(), sess.Store, request.Question, tables)
	if err != nil {
		// A message carrying an executed query survives even a failed turn.
		if message.Query != "" {
			sess.AppendMessage(message)
		}
		writeError(r.Context(), w, http.StatusBadGateway, "CHAT_FAILED", err.Error(), true, nil)
		return
	}

	sess.AppendMessage(message)
	writeJSON(w, http.StatusOK, message)
}

func handleGetChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": sess.Messages()})
}

func handleClearChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(deps, w, r)
	if !ok {
		return
	}
	sess.ClearMessages()
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}
