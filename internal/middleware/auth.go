package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/quietcuration/internal/apperr"
	"github.com/dukerupert/quietcuration/internal/auth"
	"github.com/dukerupert/quietcuration/internal/store"
)

const SessionCookieName = "quiet_session"

// Authenticator resolves the session cookie into an AuthContext.
type Authenticator struct {
	sessions *store.SessionStore
	profiles *store.ProfileStore
}

func NewAuthenticator(sessions *store.SessionStore, profiles *store.ProfileStore) *Authenticator {
	return &Authenticator{sessions: sessions, profiles: profiles}
}

func (a *Authenticator) resolve(r *http.Request) (auth.AuthContext, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return auth.AuthContext{}, false
	}
	sess, err := a.sessions.GetByToken(r.Context(), cookie.Value)
	if err != nil || sess == nil {
		return auth.AuthContext{}, false
	}
	profile, err := a.profiles.GetByID(r.Context(), sess.UserID)
	if err != nil || profile == nil {
		return auth.AuthContext{}, false
	}
	return auth.AuthContext{UserID: profile.ID, Role: profile.Role, SessionID: sess.ID}, true
}

// Identify attaches the AuthContext when a valid session is present and lets
// anonymous requests through.
func (a *Authenticator) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ac, ok := a.resolve(r); ok {
			r = r.WithContext(auth.WithAuth(r.Context(), ac))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession rejects requests without a valid session with 401.
func (a *Authenticator) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			ac, ok = a.resolve(r)
		}
		if !ok {
			writeError(w, apperr.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
	})
}

// RequireCurator admits editors and admins. It must run after RequireSession.
func RequireCurator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeError(w, apperr.ErrNotAuthenticated)
			return
		}
		if !auth.CanCurate(r.Context()) {
			writeError(w, apperr.ErrNotAuthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	json.NewEncoder(w).Encode(map[string]any{"error": e.Message, "code": e.Code})
}
