package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/imgpress/imgpress/internal/auth"
)

// maxAuthFormMemory bounds in-memory multipart parsing while extracting the
// token field. File parts beyond this spill to temp files; the overall body
// size is already capped by MaxBodySize.
const maxAuthFormMemory = 32 << 20 // 32 MB

// TokenValidator resolves a bearer token to a username.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// AuthConfig holds configuration for the session auth middleware.
type AuthConfig struct {
	Logger    *slog.Logger
	Validator TokenValidator
}

// SessionAuth returns a middleware that authenticates requests by session
// token and injects the resolved username into the request context.
//
// The shipped gallery client sends the token as a query parameter or a
// multipart form field, so both positions are accepted alongside the
// conventional Authorization: Bearer header.
func SessionAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			username, err := cfg.Validator.Validate(r.Context(), token)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			ctx := auth.ContextWithUsername(r.Context(), username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the session token from the request, checking the
// Authorization header first, then the legacy query/form positions.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		// Parsing here is safe: the parsed form stays on the request, so
		// handlers still reach the file part through FormFile.
		if err := r.ParseMultipartForm(maxAuthFormMemory); err != nil {
			return ""
		}
		return r.FormValue("token")
	}

	return ""
}

// writeAuthError writes a 401 response for authentication failures.
// The body stays deliberately vague: missing, malformed, expired and unknown
// tokens all read the same to a caller.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"invalid token, try logging in again","code":"UNAUTHORIZED"}`))
}
