package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"photomotion/internal/generation"
	"photomotion/internal/infra/credentials"
)

type keySelectRequest struct {
	APIKey string `json:"api_key"`
}

// KeyStatus reports whether a usable API key is present. The check fails soft:
// a broken credential source reads as absent, never as an error.
func (a *App) KeyStatus(w http.ResponseWriter, r *http.Request) {
	presence := a.Gate.Check(r.Context())
	a.json(w, http.StatusOK, map[string]any{
		"present": presence == credentials.PresencePresent,
	})
}

// KeySelect stores a new API key and unblocks generation. A session parked in
// selecting_key is returned to idle.
func (a *App) KeySelect(w http.ResponseWriter, r *http.Request) {
	sess := a.sessionFor(w, r)

	var req keySelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", "api_key is required")
		return
	}

	if err := a.Gate.Select(r.Context(), req.APIKey); err != nil {
		a.Logger.Error().Err(err).Msg("key selection failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store the api key")
		return
	}

	if sess.Snapshot().State == generation.StateSelectingKey {
		_ = sess.Reset(false)
	}

	a.json(w, http.StatusOK, map[string]any{
		"present": true,
		"state":   sess.Snapshot().State,
	})
}
