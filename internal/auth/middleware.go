package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claimsKey struct{}

// ErrorResponse is the body written for rejected requests. It matches the
// {"error","code"} shape the API handlers use.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WithClaims stores claims in ctx the way AuthMiddleware does.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the caller's claims, or nil for anonymous
// requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}

func UserIDFromContext(ctx context.Context) int64 {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return 0
}

func RoleFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Role
	}
	return ""
}

var publicPaths = map[string]bool{
	"/health":     true,
	"/dbping":     true,
	"/auth/login": true,
	"/metrics":    true,
}

func isPublicPath(path string) bool {
	return publicPaths[path]
}

func sendErrorResponse(w http.ResponseWriter, message, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

const maxTokenBytes = 8192

func validateTokenFormat(token string) error {
	switch {
	case token == "":
		return errors.New("token cannot be empty")
	case len(token) > maxTokenBytes:
		return errors.New("token size exceeds maximum allowed")
	case strings.Count(token, ".") != 2:
		return errors.New("invalid JWT token format")
	}
	return nil
}

// bearerToken pulls the token out of the Authorization header. On failure
// it returns the message and code to send back.
func bearerToken(r *http.Request) (token, message, code string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Authorization header required", "MISSING_AUTH_HEADER"
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT"
	}
	if err := validateTokenFormat(token); err != nil {
		return "", "Invalid token format: " + err.Error(), "INVALID_TOKEN_FORMAT"
	}
	return token, "", ""
}

func tokenError(err error) (message, code string) {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token has expired", "TOKEN_EXPIRED"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), strings.Contains(err.Error(), "signing method"):
		return "Invalid token signing method", "INVALID_SIGNING_METHOD"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Token is malformed", "MALFORMED_TOKEN"
	default:
		return "Invalid or expired token", "INVALID_TOKEN"
	}
}

// AuthMiddleware requires a valid bearer token on every non-public path
// and puts its claims on the request context. Tokens within an hour of
// expiry get X-Token-Expires-* headers so clients can refresh.
func AuthMiddleware(jwtManager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, message, code := bearerToken(r)
			if token == "" {
				sendErrorResponse(w, message, code, http.StatusUnauthorized)
				return
			}
			claims, err := jwtManager.ValidateToken(token)
			if err != nil {
				message, code := tokenError(err)
				sendErrorResponse(w, message, code, http.StatusUnauthorized)
				return
			}
			if claims.UserID <= 0 || claims.Role == "" {
				sendErrorResponse(w, "Token carries no user or role", "INVALID_CLAIMS", http.StatusUnauthorized)
				return
			}

			if claims.ExpiresAt != nil && claims.IsExpiringSoon(time.Hour) {
				expiresAt := claims.ExpiresAt.Time
				w.Header().Set("X-Token-Expires-At", expiresAt.Format(time.RFC3339))
				w.Header().Set("X-Token-Expires-In", time.Until(expiresAt).Round(time.Second).String())
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// MustRole admits callers holding one of roles.
func MustRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			switch {
			case claims == nil:
				sendErrorResponse(w, "Authentication required", "AUTHENTICATION_REQUIRED", http.StatusUnauthorized)
			case !claims.HasRole(roles...):
				sendErrorResponse(w, "Insufficient permissions", "INSUFFICIENT_PERMISSIONS", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
