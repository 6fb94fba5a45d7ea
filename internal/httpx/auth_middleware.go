package httpx

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/apperr"
	"github.com/ariefcatur/lumina-store/internal/auth"
	"github.com/ariefcatur/lumina-store/internal/users"
)

type tokenParser interface {
	Parse(raw string) (auth.Claims, error)
}

type accountLookup interface {
	Get(ctx context.Context, id string) (users.User, error)
}

// Authenticator turns the request token into an auth.Identity. The account is
// loaded on every request so suspensions and role changes apply at once.
type Authenticator struct {
	Tokens tokenParser
	Users  accountLookup
	Log    *zap.Logger
}

func tokenFrom(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get("x-auth-token")); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFrom(r)
		if raw == "" {
			writeMessage(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		claims, err := a.Tokens.Parse(raw)
		if err != nil {
			writeError(w, r, a.Log, err)
			return
		}
		u, err := a.Users.Get(r.Context(), claims.ID)
		if apperr.KindOf(err) == apperr.KindNotFound {
			writeError(w, r, a.Log, auth.ErrInvalidToken)
			return
		}
		if err != nil {
			writeError(w, r, a.Log, err)
			return
		}
		if u.Suspended() {
			writeMessage(w, http.StatusForbidden, "Account suspended")
			return
		}
		id := auth.Identity{UserID: u.ID, Role: u.Role, Email: u.Email, Name: u.Name}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin must run after RequireAuth.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok || !id.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
