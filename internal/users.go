package internal

import (
	"net/http"
	"strings"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/auth"
	"assetdb-api/internal/handlers"
	"assetdb-api/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := handlers.Decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}

	user, err := s.Store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if apperr.Is(err, apperr.KindNotFound) {
		handlers.WriteJSON(w, http.StatusUnauthorized, handlers.ErrorResponse{Error: "Invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		handlers.WriteJSON(w, http.StatusUnauthorized, handlers.ErrorResponse{Error: "Invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}

	token, err := s.JWTManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.fail(w, apperr.Infrastructure("generate token", err))
		return
	}
	s.log.WithField("user_id", user.ID).Info("user logged in")

	handlers.WriteJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// me returns the caller's token claims.
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"id":    claims.UserID,
		"email": claims.Email,
		"role":  claims.Role,
	})
}
