package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"cityq/eticket-service/internal/store"
)

type authContextKey struct{}

// AuthMiddleware resolves the citizen session for the endpoints that
// act on behalf of a citizen. Listing and health are public; the
// kiosk-facing endpoints authenticate with their own agency token
// inside the handler.
func AuthMiddleware(st SessionStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := st.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	session, ok := ctx.Value(authContextKey{}).(store.Session)
	return session, ok
}

func requireCitizen(w http.ResponseWriter, r *http.Request) (string, bool) {
	session, ok := sessionFromContext(r.Context())
	if !ok || session.CitizenID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return "", false
	}
	return session.CitizenID, true
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch {
	case r.URL.Path == "/healthz", r.URL.Path == "/metrics":
		return true
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/agencies/") && strings.HasSuffix(r.URL.Path, "/services"):
		return true
	case strings.HasSuffix(r.URL.Path, "/push_all"), strings.HasSuffix(r.URL.Path, "/send_notifications"):
		// Agency-token endpoints carry their own credential check.
		return true
	default:
		return r.Method == http.MethodOptions
	}
}
