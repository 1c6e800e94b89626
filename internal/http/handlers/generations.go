package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"photomotion/internal/generation"
	"photomotion/internal/infra/credentials"
	"photomotion/internal/middleware"
	"photomotion/internal/session"
)

type generationResponse struct {
	GenerationID string `json:"generation_id"`
	State        string `json:"state"`
	Progress     string `json:"progress,omitempty"`
	VideoURL     string `json:"video_url,omitempty"`
	Error        *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func renderGeneration(snap session.Snapshot, locale string) generationResponse {
	resp := generationResponse{
		GenerationID: snap.GenerationID,
		State:        string(snap.State),
		Progress:     generation.ProgressLabel(snap.Step, locale),
	}
	if snap.State == generation.StateSuccess && snap.HasVideo {
		resp.VideoURL = "/v1/generations/" + snap.GenerationID + "/video"
	}
	if snap.ErrorMessage != "" {
		resp.Error = &struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}{Code: snap.ErrorKind.String(), Message: snap.ErrorMessage}
	}
	return resp
}

// GenerationsCreate accepts a multipart photo + script + aspect ratio and
// starts the pipeline. Submission is refused without both an image and a
// non-empty prompt, while the key gate reports absent, and while another
// generation is in flight on the session.
func (a *App) GenerationsCreate(w http.ResponseWriter, r *http.Request) {
	sess := a.sessionFor(w, r)

	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", "a prompt is required")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", "an image is required")
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(io.LimitReader(file, a.MaxUploadBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read the image")
		return
	}
	if int64(len(imageBytes)) > a.MaxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds the upload limit")
		return
	}
	if len(imageBytes) == 0 {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", "an image is required")
		return
	}

	aspect, err := generation.ParseAspectRatio(r.FormValue("aspect_ratio"))
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", err.Error())
		return
	}

	if a.Gate.Check(r.Context()) != credentials.PresencePresent {
		sess.MarkSelectingKey()
		a.error(w, http.StatusPreconditionFailed, "api_key_required", "an api key must be selected before generating")
		return
	}

	genID, err := a.Sessions.Begin(sess, prompt, aspect)
	if err != nil {
		if errors.Is(err, session.ErrInFlight) {
			a.error(w, http.StatusConflict, "in_flight", "a generation is already in flight")
			return
		}
		a.error(w, http.StatusConflict, "conflict", err.Error())
		return
	}

	req := generation.Request{
		ImageBytes:  imageBytes,
		ImageMIME:   header.Header.Get("Content-Type"),
		Prompt:      prompt,
		AspectRatio: aspect,
	}
	go a.runGeneration(sess, genID, req)

	a.json(w, http.StatusAccepted, renderGeneration(sess.Snapshot(), middleware.LocaleFromContext(r.Context())))
}

// runGeneration drives the pipeline on its own goroutine. The request context
// is deliberately not used: once submitted, a generation runs to completion
// regardless of the client connection.
func (a *App) runGeneration(sess *session.Session, genID string, req generation.Request) {
	logger := a.Logger.With().Str("generation_id", genID).Logger()

	res, err := a.Runner.Run(context.Background(), req, sess.SetStep)
	if err != nil {
		sess.Fail(generation.KindOf(err), err.Error())
		logger.Warn().Str("kind", generation.KindOf(err).String()).Msg("generation failed")
		return
	}
	sess.Succeed(res.Video, res.MIME)
	logger.Info().Int("bytes", len(res.Video)).Msg("generation succeeded")
}

// GenerationStatus reports the state machine position and the localized
// progress label for an in-flight or finished generation.
func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.Sessions.ByGeneration(chi.URLParam(r, "generation_id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "generation not found")
		return
	}
	w.Header().Set("X-Session-ID", sess.ID())
	a.json(w, http.StatusOK, renderGeneration(sess.Snapshot(), middleware.LocaleFromContext(r.Context())))
}

// GenerationVideo serves the downloaded video bytes for a successful
// generation straight from session memory.
func (a *App) GenerationVideo(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.Sessions.ByGeneration(chi.URLParam(r, "generation_id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "generation not found")
		return
	}
	data, mime, err := sess.Video()
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "no video is available for this generation")
		return
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GenerationReset returns a finished generation's session to idle, or to
// selecting_key when the credential was revoked along the way.
func (a *App) GenerationReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.Sessions.ByGeneration(chi.URLParam(r, "generation_id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "generation not found")
		return
	}
	w.Header().Set("X-Session-ID", sess.ID())
	a.resetSession(w, r, sess)
}

// SessionReset resets the caller's session directly, covering states with no
// generation attached (such as selecting_key on first load).
func (a *App) SessionReset(w http.ResponseWriter, r *http.Request) {
	sess := a.sessionFor(w, r)
	a.resetSession(w, r, sess)
}

func (a *App) resetSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	credentialAbsent := a.Gate.Check(r.Context()) != credentials.PresencePresent
	if err := sess.Reset(credentialAbsent); err != nil {
		a.error(w, http.StatusConflict, "in_flight", "cannot reset while a generation is in flight")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"state": sess.Snapshot().State})
}
