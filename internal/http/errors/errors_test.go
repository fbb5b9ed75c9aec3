package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrSessionExpired)

	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "SESSION_EXPIRED" {
		t.Errorf("code = %q", body["code"])
	}
	if body["message"] == "" {
		t.Error("message missing")
	}
}

func TestWriteErrorWrapsUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pg: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "INTERNAL_SERVER_ERROR" {
		t.Errorf("code = %q", body["code"])
	}
	// internals never leak to the client
	for _, v := range body {
		if v == "pg: connection refused" {
			t.Fatal("raw cause leaked into the response")
		}
	}
}

func TestWithDetailCopies(t *testing.T) {
	detailed := ErrBadRequest.WithDetail("platform is required")
	if detailed == ErrBadRequest {
		t.Fatal("WithDetail must copy")
	}
	if ErrBadRequest.Detail != "" {
		t.Fatal("base var mutated")
	}
	if detailed.Detail != "platform is required" {
		t.Fatalf("Detail = %q", detailed.Detail)
	}
	if detailed.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("HTTPStatus = %d", detailed.HTTPStatus)
	}
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := ErrUpstreamExchange.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Fatal("Unwrap chain broken")
	}
	if ErrUpstreamExchange.Err != nil {
		t.Fatal("base var mutated")
	}

	if got := FromError(err); got != err {
		t.Fatal("FromError must pass AppErrors through")
	}
}
