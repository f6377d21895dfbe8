package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// role is the caller's access tier. Admins satisfy staff checks.
type role int

const (
	roleAnonymous role = iota
	roleStaff
	roleAdmin
)

func (r role) atLeast(min role) bool {
	return r >= min
}

func parseRole(s string) role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return roleAdmin
	case "staff":
		return roleStaff
	default:
		return roleAnonymous
	}
}

// bearerClaims verifies the Authorization bearer token and returns its
// claims, or nil for missing/invalid tokens.
func bearerClaims(r *http.Request, secret []byte) jwt.MapClaims {
	if len(secret) == 0 {
		return nil
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	return claims
}

// callerRole resolves the caller's tier from the bearer token, defaulting to
// anonymous.
func callerRole(r *http.Request, secret []byte) role {
	claims := bearerClaims(r, secret)
	if claims == nil {
		return roleAnonymous
	}
	raw, _ := claims["role"].(string)
	return parseRole(raw)
}

// callerSubject returns the authenticated identity for audit tagging.
func callerSubject(r *http.Request, secret []byte) string {
	claims := bearerClaims(r, secret)
	if claims == nil {
		return "anonymous"
	}
	if sub, _ := claims["sub"].(string); sub != "" {
		return sub
	}
	return "unknown"
}

// requireRole gates a route subtree on a minimum access tier.
func (s *Server) requireRole(min role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := callerRole(r, s.config.JWTSecret)
			if got == roleAnonymous {
				s.jsonError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !got.atLeast(min) {
				s.jsonError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
