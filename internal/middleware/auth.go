package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/services/oidc"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Auth validates the bearer token against the configured OIDC provider and
// loads (or provisions) the matching user into the request context.
func Auth(db *database.DB, oidcProvider *oidc.Provider, jwksManager *oidc.JWKSManager) func(http.Handler) http.Handler {
	userRepo := database.NewUserRepository(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondError(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
				return
			}

			ctx := r.Context()
			oidcConfig, err := oidcProvider.GetConfig(ctx, "cognito")
			if err != nil {
				respondError(w, http.StatusInternalServerError, "Failed to get OIDC configuration")
				return
			}
			if oidcConfig.JWKSUrl == nil {
				respondError(w, http.StatusInternalServerError, "JWKS URL not configured")
				return
			}

			verifier := oidc.NewVerifier(jwksManager, oidcConfig.Issuer)
			claims, err := verifier.Verify(ctx, token, *oidcConfig.JWKSUrl)
			if err != nil {
				log.Printf("Token verification failed: %v (issuer: %s)", err, oidcConfig.Issuer)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := resolveUser(ctx, userRepo, claims)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "Database error")
				return
			}

			ctx = context.WithValue(ctx, userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// resolveUser looks the subject up by provider id, provisioning on first
// login and syncing email/name drift on subsequent ones.
func resolveUser(ctx context.Context, userRepo *database.UserRepository, claims *models.JWTClaims) (*models.User, error) {
	user, err := userRepo.GetByProviderID(ctx, claims.Sub)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("Database error while fetching user: %v", err)
			return nil, err
		}
		user = &models.User{
			ID:            uuid.New(),
			Email:         claims.Email,
			ProviderID:    &claims.Sub,
			Name:          &claims.Name,
			EmailVerified: true,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	changed := false
	if user.Email != claims.Email {
		user.Email = claims.Email
		changed = true
	}
	if (user.Name == nil && claims.Name != "") || (user.Name != nil && *user.Name != claims.Name) {
		name := claims.Name
		user.Name = &name
		changed = true
	}
	if changed {
		if err := userRepo.Update(ctx, user); err != nil {
			// stale profile fields are tolerable; auth itself succeeded
			log.Printf("Failed to sync user profile: %v", err)
		}
	}
	return user, nil
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
