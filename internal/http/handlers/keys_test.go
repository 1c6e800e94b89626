package handlers_test

import (
	"net/http"
	"strings"
	"testing"
)

func TestKeyStatusReflectsGate(t *testing.T) {
	e := newEnv(t, "", &stubRunner{})
	rec := e.do(t, http.MethodGet, "/v1/key/status", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["present"]; got != false {
		t.Fatalf("present = %v, want false", got)
	}

	e = newEnv(t, "sk-test", &stubRunner{})
	rec = e.do(t, http.MethodGet, "/v1/key/status", "", nil, "")
	if got := decodeBody(t, rec)["present"]; got != true {
		t.Fatalf("present = %v, want true", got)
	}
}

func TestKeySelectValidation(t *testing.T) {
	e := newEnv(t, "", &stubRunner{})

	rec := e.do(t, http.MethodPost, "/v1/key", "", strings.NewReader("not json"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json code = %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/v1/key", "", strings.NewReader(`{"api_key":"   "}`), "application/json")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank key code = %d", rec.Code)
	}
}

func TestKeySelectUnblocksGeneration(t *testing.T) {
	e := newEnv(t, "", &stubRunner{})

	// blocked submission parks the session in selecting_key
	body, contentType := multipartBody(t, "a prompt", "16:9", jpegBytes)
	rec := e.do(t, http.MethodPost, "/v1/generations", "", body, contentType)
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("create code = %d, want 412", rec.Code)
	}
	sessionID := rec.Header().Get("X-Session-ID")

	rec = e.do(t, http.MethodPost, "/v1/key", sessionID, strings.NewReader(`{"api_key":"sk-fresh"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("select code = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["present"] != true {
		t.Fatalf("present = %v, want true", resp["present"])
	}
	if resp["state"] != "idle" {
		t.Fatalf("state = %v, want idle", resp["state"])
	}

	rec = e.do(t, http.MethodGet, "/v1/key/status", "", nil, "")
	if got := decodeBody(t, rec)["present"]; got != true {
		t.Fatal("key should be present after selection")
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t, "sk-test", &stubRunner{})
	rec := e.do(t, http.MethodGet, "/v1/healthz", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["status"]; got != "ok" {
		t.Fatalf("status = %v", got)
	}
}
