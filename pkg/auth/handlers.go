package auth

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/antibyte/kscr/pkg/logger"
)

// SessionResponse is the body returned by HandleCreateSession
type SessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	Token     string `json:"token,omitempty"`
	Message   string `json:"message"`
}

// HandleCreateSession creates a new evaluation session and returns its token
func HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		logger.AuthWarn("Invalid method for session creation: %s", r.Method)
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := generateSessionID()
	token, err := GenerateSessionToken(sessionID)
	if err != nil {
		logger.Error(logger.AreaAuth, "Failed to generate token for session %s: %v", sessionID, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	logger.AuthInfo("New session created: %s for IP: %s", sessionID, getClientIP(r))
	json.NewEncoder(w).Encode(SessionResponse{
		Success:   true,
		SessionID: sessionID,
		Token:     token,
		Message:   "Session created",
	})
}

// HandleTokenValidation reports whether the request carries a valid token
func HandleTokenValidation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		respondWithError(w, "Token missing", http.StatusUnauthorized)
		return
	}
	claims, err := ValidateSessionToken(tokenString)
	if err != nil {
		logger.AuthDebug("Token validation failed: %v", err)
		respondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	json.NewEncoder(w).Encode(SessionResponse{
		Success:   true,
		SessionID: claims.SessionID,
		Message:   "Token valid",
	})
}

// generateSessionID creates a unique session ID
func generateSessionID() string {
	return uuid.New().String()
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// respondWithError sendet eine Fehlerantwort als JSON
func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(SessionResponse{
		Success: false,
		Message: message,
	})
}
