package shared

import (
	"net/http"
	"net/url"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
}

// Authenticated reports whether the caller is logged in.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// IdentityFromSession resolves the caller from the session.
func IdentityFromSession(sess *Session) Identity {
	if sess == nil {
		return Identity{}
	}
	return Identity{UserID: sess.User()}
}

// RequireUser redirects anonymous browser requests to the login page and
// answers API requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()).Authenticated() {
			next.ServeHTTP(w, r)
			return
		}
		if wantsJSON(r) {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"title":"Unauthorized","status":401}`))
			return
		}
		if sess := SessionFromContext(r.Context()); sess != nil {
			sess.AddFlash(FlashMessage{Kind: "info", Message: "Inicia sesión para continuar"})
		}
		target := "/auth/login?next=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

func wantsJSON(r *http.Request) bool {
	if len(r.URL.Path) >= 5 && r.URL.Path[:5] == "/api/" {
		return true
	}
	return r.Header.Get("Accept") == "application/json"
}
