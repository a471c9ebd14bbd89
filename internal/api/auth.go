package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
	jwt.RegisteredClaims
}

type contextKey string

const claimsKey contextKey = "claims"

var (
	errTokenExchange = errors.New("token exchange failed")
	errGetUser       = errors.New("failed to get user")
	errCreateToken   = errors.New("failed to create token")
)

func claimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// Auth handlers
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	url := a.oauthConfig.AuthCodeURL(state)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"auth_url": url,
		"state":    state,
	})
}

func (a *API) authenticateUser(ctx context.Context, code string) (string, error) {
	// Exchange code for token
	token, err := a.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errTokenExchange, err)
	}

	user, err := a.getDiscordUser(ctx, token.AccessToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errGetUser, err)
	}

	tokenString, err := a.issueToken(user.ID, getUsername(user), token.AccessToken, time.Now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", errCreateToken, err)
	}
	return tokenString, nil
}

// issueToken signs a session token valid for 24 hours.
func (a *API) issueToken(userID, username, accessToken string, now time.Time) (string, error) {
	claims := &Claims{
		UserID:      userID,
		Username:    username,
		AccessToken: accessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}

func (a *API) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	tokenString, err := a.authenticateUser(r.Context(), code)
	if err != nil {
		errorType := "authentication_failed"
		switch {
		case errors.Is(err, errTokenExchange):
			errorType = "token_exchange_failed"
		case errors.Is(err, errGetUser):
			errorType = "failed_to_get_user"
		case errors.Is(err, errCreateToken):
			errorType = "failed_to_create_token"
		}
		http.Redirect(w, r, "/?error="+errorType, http.StatusSeeOther)
		return
	}

	// The page picks the token up from the URL fragment
	http.Redirect(w, r, "/#token="+tokenString, http.StatusSeeOther)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "logged out",
	})
}

// Middleware
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return a.jwtSecret, nil
		})

		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
