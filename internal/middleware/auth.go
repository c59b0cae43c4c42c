package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// CookieName is the cookie carrying the session token.
const CookieName = "authenticated"

// SessionToken derives the cookie value from the configured password, so
// changing the password logs everybody out.
func SessionToken(password string) string {
	sum := sha256.Sum256([]byte("detectboard:" + password))
	return hex.EncodeToString(sum[:])
}

// AuthMiddleware sprawdza, czy użytkownik jest zalogowany (ma poprawne cookie sesji)
func AuthMiddleware(password string, next http.Handler) http.Handler {
	token := SessionToken(password)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Strona logowania i zasoby statyczne są dostępne bez uwierzytelnienia
		if r.URL.Path == "/login" ||
			r.URL.Path == "/auth/login" ||
			strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(token)) != 1 {
			// API i logi dostają 401, zwykłe strony przekierowanie na login
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				strings.HasPrefix(r.URL.Path, "/logs/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
