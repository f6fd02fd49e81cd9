package server

import (
	"net/http"
	"strings"
)

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// sessionToken prefers the Bearer token players send and falls back to the
// admin console's cookie.
func sessionToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(adminCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// streamToken also accepts the token query parameter, since EventSource
// cannot set headers.
func streamToken(r *http.Request) string {
	if token := sessionToken(r); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}
