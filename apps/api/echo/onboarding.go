package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
)

type onboardingApi struct {
	svc     *onboarding.Service
	metrics *metrics
}

type (
	SaveStepRequest struct {
		Email       string          `json:"email"`
		UserID      string          `json:"user_id"`
		InviteToken string          `json:"invite_token"`
		Data        json.RawMessage `json:"data"`
	}

	CompleteRequest struct {
		Email       string `json:"email"`
		UserID      string `json:"user_id"`
		InviteToken string `json:"invite_token"`
	}

	CompleteResponse struct {
		ProfileID string              `json:"profile_id"`
		UserID    string              `json:"user_id"`
		Result    *edfi.Result        `json:"result"`
		Progress  onboarding.Progress `json:"progress"`
	}
)

// registerOnboardingAPI mounts the onboarding endpoints. They accept anonymous requests
// keyed by email; a valid token takes precedence over the request's email and user id.
// Form data is only returned to callers holding a JWT or the invitation token of the
// progress; other callers get a summary.
func registerOnboardingAPI(g *echo.Group, optionalJWT echo.MiddlewareFunc, svc *onboarding.Service, m *metrics) {
	api := onboardingApi{svc: svc, metrics: m}

	og := g.Group("/onboarding", optionalJWT)
	og.POST("/progress", api.resume)
	og.GET("/progress", api.retrieve)
	og.PUT("/progress/:step", api.saveStep)
	og.POST("/complete", api.complete)
}

func requestKey(ctx echo.Context, key onboarding.Key) onboarding.Key {
	if claims, err := getContextClaims(ctx); err == nil {
		key.Email = claims.Email
		if claims.Subject != "" {
			key.UserID = claims.Subject
		}
	}
	return key
}

func (api *onboardingApi) view(ctx echo.Context, p onboarding.Progress, inviteToken string) onboarding.Progress {
	if _, err := getContextClaims(ctx); err == nil {
		return p
	}
	if api.svc.HoldsInvitation(ctx.Request().Context(), p, inviteToken) {
		return p
	}
	return p.Summary()
}

func (api *onboardingApi) resume(ctx echo.Context) error {
	var data onboarding.ResumeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResumeRequest")
	}
	key := requestKey(ctx, onboarding.Key{UserID: data.UserID, Email: data.Email})
	data.Email, data.UserID = key.Email, key.UserID

	p, err := api.svc.Resume(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "resuming onboarding")
	}
	return ctx.JSON(http.StatusOK, api.view(ctx, p, data.InviteToken))
}

func (api *onboardingApi) retrieve(ctx echo.Context) error {
	key := requestKey(ctx, onboarding.Key{UserID: ctx.QueryParam("user_id"), Email: ctx.QueryParam("email")})
	p, err := api.svc.Get(ctx.Request().Context(), key)
	if err != nil {
		return errors.Wrap(err, "getting onboarding progress")
	}
	return ctx.JSON(http.StatusOK, api.view(ctx, p, ctx.QueryParam("invite_token")))
}

func (api *onboardingApi) saveStep(ctx echo.Context) error {
	step, err := onboarding.ParseStep(ctx.Param("step"))
	if err != nil {
		return errHttpNotFound
	}
	var data SaveStepRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveStepRequest")
	}
	key := requestKey(ctx, onboarding.Key{UserID: data.UserID, Email: data.Email})

	p, err := api.svc.SaveStep(ctx.Request().Context(), key, step, data.Data)
	if err != nil {
		return errors.Wrapf(err, "saving step %s", step)
	}
	return ctx.JSON(http.StatusOK, api.view(ctx, p, data.InviteToken))
}

func (api *onboardingApi) complete(ctx echo.Context) error {
	var data CompleteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteRequest")
	}
	key := requestKey(ctx, onboarding.Key{UserID: data.UserID, Email: data.Email})

	p, err := api.svc.Complete(ctx.Request().Context(), key)
	if err != nil {
		var mfErr *onboarding.MissingFieldsError
		if errors.As(err, &mfErr) {
			api.metrics.completion("missing_fields")
		} else {
			api.metrics.completion("error")
		}
		return errors.Wrap(err, "completing onboarding")
	}
	api.metrics.completion("success")
	return ctx.JSON(http.StatusOK, CompleteResponse{
		ProfileID: p.ProfileID,
		UserID:    p.UserID,
		Result:    p.Result,
		Progress:  api.view(ctx, p, data.InviteToken),
	})
}
