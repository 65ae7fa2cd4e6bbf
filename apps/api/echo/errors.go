package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainErrors maps the service errors that are not server errors to their status code.
var domainErrors = []struct {
	err  error
	code int
}{
	{invitation.ErrNotFound, http.StatusNotFound},
	{onboarding.ErrNotFound, http.StatusNotFound},
	{event.ErrNotFound, http.StatusNotFound},
	{event.ErrRegistrationNotFound, http.StatusNotFound},
	{event.ErrEnrollmentNotFound, http.StatusNotFound},
	{user.ErrNotFound, http.StatusNotFound},
	{invitation.ErrExpired, http.StatusGone},
	{invitation.ErrNotPending, http.StatusConflict},
	{onboarding.ErrAlreadyComplete, http.StatusConflict},
	{event.ErrInvalidTransition, http.StatusConflict},
	{event.ErrNotOpen, http.StatusConflict},
	{event.ErrEventFull, http.StatusConflict},
	{event.ErrNoCalendar, http.StatusServiceUnavailable},
}

type missingFieldsResponse struct {
	Error         string                    `json:"error"`
	MissingFields []onboarding.MissingField `json:"missing_fields"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var mfErr *onboarding.MissingFieldsError
		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Error()
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if errors.As(err, &mfErr) {
				code = http.StatusUnprocessableEntity
				message = missingFieldsResponse{Error: "missing required fields", MissingFields: mfErr.Fields}
				break
			}
			if c, ok := domainErrorCode(err); ok {
				code = c
				message = errors.Cause(err).Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			var pErr *edfi.ProvisionError
			if errors.As(err, &pErr) {
				args = append(args, map[string]interface{}{"stage": pErr.Stage, "created": pErr.Created})
			}
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				args = append(args, user.User{ID: claims.Subject, Email: claims.Email})
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func domainErrorCode(err error) (int, bool) {
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			return de.code, true
		}
	}
	return 0, false
}
