package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

var errMissingClaims = errors.New("missing claims")

func claimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, errMissingClaims
	}
	return claims, nil
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
