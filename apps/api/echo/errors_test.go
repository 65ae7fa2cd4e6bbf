package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
)

type recordingLogger struct {
	core.NopLogger
	errors []string
}

func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }

func TestAppHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
		wantLog  bool
	}{
		{
			name:     "http error",
			err:      errHttpForbidden,
			wantCode: http.StatusForbidden,
			wantBody: `{"error":"permission denied"}`,
		},
		{
			name: "validation error",
			err: errors.Wrap(core.NewValidationError(nil,
				core.FieldError{Field: "email", Error: "this field is required"},
			), "creating"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"email":"this field is required"}`,
		},
		{
			name: "missing fields",
			err: errors.Wrap(&onboarding.MissingFieldsError{Fields: []onboarding.MissingField{
				{Field: "firstName", Label: "First Name"},
			}}, "completing"),
			wantCode: http.StatusUnprocessableEntity,
			wantBody: `{"error":"missing required fields","missing_fields":[{"field":"firstName","label":"First Name"}]}`,
		},
		{
			name:     "not found",
			err:      errors.Wrap(invitation.ErrNotFound, "validating"),
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"invitation not found"}`,
		},
		{
			name:     "expired",
			err:      invitation.ErrExpired,
			wantCode: http.StatusGone,
			wantBody: `{"error":"invitation has expired"}`,
		},
		{
			name:     "conflict",
			err:      errors.Wrap(event.ErrEventFull, "confirming"),
			wantCode: http.StatusConflict,
			wantBody: `{"error":"event is full"}`,
		},
		{
			name:     "provisioning failure",
			err:      errors.Wrap(&edfi.ProvisionError{Stage: edfi.StageSchool, Err: errors.New("db down")}, "completing"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Internal Server Error"}`,
			wantLog:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(recordingLogger)
			shutdown := false
			handler := newAppHTTPErrorHandler(logger, func() { shutdown = true })

			e := echo.New()
			rec := httptest.NewRecorder()
			handler(tt.err, e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantLog, len(logger.errors) > 0)
			assert.False(t, shutdown)
		})
	}
}

func TestAppHTTPErrorHandler_shutdown(t *testing.T) {
	shutdown := false
	handler := newAppHTTPErrorHandler(new(recordingLogger), func() { shutdown = true })

	e := echo.New()
	rec := httptest.NewRecorder()
	handler(core.NewShutdownError("integrity issue"), e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, shutdown)
}
