package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"photomotion/internal/generation"
	"photomotion/internal/infra"
	"photomotion/internal/infra/credentials"
	"photomotion/internal/session"
)

// Runner executes one generation to completion. *generation.Pipeline is the
// production implementation.
type Runner interface {
	Run(ctx context.Context, req generation.Request, report generation.Reporter) (*generation.Result, error)
}

// App is the handler container holding everything the endpoints need.
type App struct {
	Logger         infra.Logger
	Gate           *credentials.Gate
	Sessions       *session.Store
	Runner         Runner
	MaxUploadBytes int64
}

// NewApp wires the handler container.
func NewApp(logger infra.Logger, gate *credentials.Gate, sessions *session.Store, runner Runner, maxUploadBytes int64) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 16 << 20
	}
	return &App{
		Logger:         logger,
		Gate:           gate,
		Sessions:       sessions,
		Runner:         runner,
		MaxUploadBytes: maxUploadBytes,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

// sessionFor resolves the caller's session from the X-Session-ID header,
// creating one when needed, and echoes the ID back.
func (a *App) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := a.Sessions.Ensure(r.Header.Get("X-Session-ID"))
	w.Header().Set("X-Session-ID", sess.ID())
	return sess
}
