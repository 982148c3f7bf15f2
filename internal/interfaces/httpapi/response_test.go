package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/contest-feed/internal/usecase"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) googleResponseEnvelope {
	t.Helper()
	var env googleResponseEnvelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rec.Body.String())
	}
	if env.APIVersion != googleAPIVersion {
		t.Fatalf("apiVersion got=%q want=%q", env.APIVersion, googleAPIVersion)
	}
	return env
}

func TestWriteSuccess(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("got status=%d content-type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
	env := decodeEnvelope(t, rec)
	if env.Data == nil || env.Error != nil {
		t.Fatalf("success envelope got data=%v error=%+v", env.Data, env.Error)
	}
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("%w: days must be an integer", usecase.ErrInvalidInput))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Status != "INVALID_ARGUMENT" || env.Error.Code != http.StatusBadRequest {
		t.Fatalf("unexpected error body: %+v", env.Error)
	}
	if len(env.Error.Errors) != 1 || env.Error.Errors[0].Domain != errorDomain || env.Error.Errors[0].Reason != "invalidInput" {
		t.Fatalf("unexpected error items: %+v", env.Error.Errors)
	}
}

func TestWriteInternalError_HidesCause(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeInternalError(context.Background(), rec)

	env := decodeEnvelope(t, rec)
	if rec.Code != http.StatusInternalServerError || env.Error == nil || env.Error.Message != "internal server error" {
		t.Fatalf("got status=%d error=%+v", rec.Code, env.Error)
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{name: "invalid input", err: fmt.Errorf("%w: days", usecase.ErrInvalidInput), wantStatus: http.StatusBadRequest, wantReason: "invalidInput"},
		{name: "not found", err: usecase.ErrNotFound, wantStatus: http.StatusNotFound, wantReason: "notFound"},
		{name: "unauthorized", err: usecase.ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantReason: "unauthorized"},
		{name: "conflict", err: fmt.Errorf("%w: warm run in progress", usecase.ErrConflict), wantStatus: http.StatusConflict, wantReason: "conflict"},
		{name: "dependency", err: usecase.ErrDependencyUnavailable, wantStatus: http.StatusServiceUnavailable, wantReason: "dependencyUnavailable"},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantReason: "internalError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(context.Background(), tt.err)
			if got.HTTPStatus != tt.wantStatus || got.Reason != tt.wantReason {
				t.Fatalf("mapError()=%d/%s want=%d/%s", got.HTTPStatus, got.Reason, tt.wantStatus, tt.wantReason)
			}
		})
	}
}
