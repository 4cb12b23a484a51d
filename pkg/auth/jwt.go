package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/antibyte/kscr/pkg/configuration"
	"github.com/antibyte/kscr/pkg/logger"
)

const (
	// Default values - actual values are loaded from configuration
	defaultJWTSecret       = "fallback_secret_change_in_production"
	defaultTokenExpiration = 24 * time.Hour

	secretEnvVar = "KSCR_JWT_SECRET"
	tokenIssuer  = "kscr"
)

// ErrNoToken is returned when a request carries no token.
var ErrNoToken = errors.New("no token found in request")

// getJWTSecret retrieves the JWT secret from environment variable or configuration
func getJWTSecret() string {
	if envSecret := os.Getenv(secretEnvVar); envSecret != "" {
		return envSecret
	}

	secret := configuration.GetString("JWT", "secret_key", "")
	if secret == "" || secret == defaultJWTSecret {
		logger.SecurityWarn("Using fallback JWT secret - set %s for production!", secretEnvVar)
		return defaultJWTSecret
	}
	return secret
}

func getTokenExpiration() time.Duration {
	hours := configuration.GetInt("JWT", "token_expiration_hours", 0)
	if hours <= 0 {
		return defaultTokenExpiration
	}
	return time.Duration(hours) * time.Hour
}

// SessionClaims are the claims of an evaluation session token
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a token for sessionID
func GenerateSessionToken(sessionID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getTokenExpiration())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   "session",
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(getJWTSecret()))
	if err != nil {
		return "", fmt.Errorf("token could not be signed: %w", err)
	}
	logger.AuthInfo("Session token generated for session ID: %s", sessionID)
	return signedToken, nil
}

// ValidateSessionToken parses and verifies a session token
func ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	secretKey := getJWTSecret()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.SessionID == "" {
		return nil, fmt.Errorf("could not extract token claims")
	}
	return claims, nil
}

// ExtractTokenFromRequest extracts the JWT token from the Authorization
// header (Bearer) or the token query parameter
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			return "", fmt.Errorf("invalid authorization header format")
		}
		return token, nil
	}

	// Browsers cannot set headers on WebSocket upgrades
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrNoToken
}

// RequireSession is a middleware that rejects requests without a valid session token
func RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			logger.AuthWarn("No token in request from %s: %v", getClientIP(r), err)
			http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
			return
		}

		claims, err := ValidateSessionToken(tokenString)
		if err != nil {
			logger.AuthWarn("Invalid token from %s: %v", getClientIP(r), err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(AddClaimsToContext(r.Context(), claims)))
	}
}
