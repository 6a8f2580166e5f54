package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dvcrn/ollama-proxy/internal/auth"
	"github.com/dvcrn/ollama-proxy/internal/transform"
	"github.com/rs/zerolog"
)

var errNoCredentialSource = errors.New("no credential source configured")

// adminMiddleware checks for valid admin API key from either
// 'Authorization: Bearer <key>' or 'X-API-Key: <key>' headers.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())
		adminKey := s.store.Current().Server.AdminAPIKey
		if adminKey == "" {
			log.Warn().Str("uri", r.RequestURI).Msg("Admin request rejected, no admin API key configured")
			transform.WriteError(w, http.StatusNotFound, "admin API not configured")
			return
		}

		var providedToken string
		authHeader := r.Header.Get("Authorization")
		xAPIKeyHeader := r.Header.Get("X-API-Key")

		if authHeader != "" {
			// Expect "Bearer <token>" format, case-insensitive
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				log.Warn().
					Str("method", r.Method).
					Str("uri", r.RequestURI).
					Str("remote_addr", r.RemoteAddr).
					Msg("Invalid Authorization header format for admin endpoint")
				transform.WriteError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}
			providedToken = parts[1]
		} else if xAPIKeyHeader != "" {
			providedToken = xAPIKeyHeader
		} else {
			log.Warn().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Missing required Authorization or X-API-Key header for admin endpoint")
			transform.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedToken), []byte(adminKey)) != 1 {
			log.Warn().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Invalid admin API key provided")
			transform.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		log.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Msg("Admin request authorized")

		next.ServeHTTP(w, r)
	})
}

// credentialsHandler handles POST /_proxy/admin/credentials, replacing the
// reasoning service API key in the writable credential source.
func (s *Server) credentialsHandler(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	if s.keyWriter == nil {
		log.Error().Msg("Credential source does not support updates")
		transform.WriteError(w, http.StatusBadRequest, "credential source is read-only")
		return
	}

	var reqBody struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		log.Error().Err(err).Msg("Failed to parse request body")
		transform.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key := strings.TrimSpace(reqBody.APIKey)
	if key == "" {
		transform.WriteError(w, http.StatusBadRequest, "missing required field: api_key")
		return
	}

	if err := s.keyWriter.SetAPIKey(key); err != nil {
		log.Error().Err(err).Msg("Failed to store API key")
		transform.WriteError(w, http.StatusInternalServerError, "failed to update credentials")
		return
	}
	if s.creds != nil {
		if err := s.creds.RefreshCredentials(); err != nil {
			log.Warn().Err(err).Msg("Failed to refresh credentials after update")
		}
	}

	log.Info().Int("key_length", len(key)).Msg("Reasoning API key updated")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Credentials updated successfully",
	})
}

type credentialsStatus struct {
	Provider           string `json:"provider"`
	SentinelModel      string `json:"sentinelModel"`
	EndpointConfigured bool   `json:"endpointConfigured"`
	HasCredentials     bool   `json:"hasCredentials"`
	Error              string `json:"error,omitempty"`
	Type               string `json:"type,omitempty"`
	ExpiresAt          int64  `json:"expiresAt,omitempty"`
	MinutesUntilExpiry *int64 `json:"minutesUntilExpiry,omitempty"`
	IsExpired          *bool  `json:"isExpired,omitempty"`
}

// credentialsStatusHandler handles GET /_proxy/admin/credentials/status
func (s *Server) credentialsStatusHandler(w http.ResponseWriter, r *http.Request) {
	cfg := s.store.Current()
	status := credentialsStatus{
		Provider:           cfg.Reasoning.Provider,
		SentinelModel:      cfg.Reasoning.SentinelModel,
		EndpointConfigured: cfg.Reasoning.Endpoint != "",
	}

	var key string
	var err error
	if s.creds == nil {
		err = errNoCredentialSource
	} else {
		key, err = s.creds.GetCredentials()
	}

	switch {
	case err != nil:
		status.Error = err.Error()
	case auth.IsBearerToken(key):
		status.HasCredentials = true
		status.Type = "bearer"
		if expiresAt, ok := auth.TokenExpiry(key); ok {
			minutes := int64(time.Until(expiresAt) / time.Minute)
			expired := auth.TokenExpired(expiresAt, time.Now())
			status.ExpiresAt = expiresAt.Unix()
			status.MinutesUntilExpiry = &minutes
			status.IsExpired = &expired
		}
	default:
		status.HasCredentials = true
		status.Type = "api_key"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
