package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the single catalog endpoint. Every operation is a
// POST whose JSON body carries an "action" discriminator; the endpoint
// answers OPTIONS preflights itself so any origin can call it.
func (s *Service) Handler() http.Handler {
	return http.HandlerFunc(s.serve)
}

func (s *Service) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST is supported")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	var envelope struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, span := tracer.Start(r.Context(), "action/"+envelope.Action)
	defer span.End()

	// Only the credential actions require identity. Browsing actions
	// stay open: they expose nothing beyond the wholesaler's catalog.
	switch envelope.Action {
	case "login", "logout":
		if err := s.verifyBearer(ctx, r); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	switch envelope.Action {
	case "products":
		route(ctx, w, body, s.handleProducts)
	case "search":
		route(ctx, w, body, s.handleSearch)
	case "product":
		route(ctx, w, body, s.handleProduct)
	case "compare":
		route(ctx, w, body, s.handleCompare)
	case "categories":
		route(ctx, w, body, s.handleCategories)
	case "session":
		route(ctx, w, body, s.handleSession)
	case "login":
		route(ctx, w, body, s.handleLogin)
	case "logout":
		route(ctx, w, body, s.handleLogout)
	case "debug":
		route(ctx, w, body, s.handleDebug)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", envelope.Action))
	}
}

func route[T any](ctx context.Context, w http.ResponseWriter, body []byte, handle func(context.Context, http.ResponseWriter, T)) {
	var req T
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	handle(ctx, w, req)
}

func (s *Service) verifyBearer(ctx context.Context, r *http.Request) error {
	if s.verifier == nil {
		return nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	return s.verifier.Verify(ctx, token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
