package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
)

type invitationApi struct {
	svc *invitation.Service
}

type (
	InvitationResponse struct {
		Invitation invitation.Invitation `json:"invitation"`
		Prefill    invitation.Prefill    `json:"prefill"`
	}

	ResendResponse struct {
		Success   bool                   `json:"success"`
		MessageID string                 `json:"message_id,omitempty"`
		Error     string                 `json:"error,omitempty"`
		ErrorKind core.DeliveryErrorKind `json:"error_kind,omitempty"`
	}
)

func registerInvitationAPI(g *echo.Group, jwt, limit echo.MiddlewareFunc, svc *invitation.Service) {
	api := invitationApi{svc: svc}

	// un-authed endpoints
	g.GET("/invitations/:token", api.validate, limit)
	g.POST("/parent-application", api.apply, limit)

	// admin endpoints
	ag := g.Group("/invitations", jwt, adminMiddleware)
	ag.GET("", api.query)
	ag.POST("/coach", api.inviteCoach)
	ag.POST("/expire", api.expire)
	ag.POST("/:id/revoke", api.revoke)
	ag.POST("/:id/cancel", api.cancel)
	ag.POST("/:id/resend", api.resend)
}

func (api *invitationApi) validate(ctx echo.Context) error {
	inv, err := api.svc.Validate(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, InvitationResponse{Invitation: inv, Prefill: inv.Prefill()})
}

func (api *invitationApi) apply(ctx echo.Context) error {
	var data invitation.ParentApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ParentApplication")
	}
	inv, err := api.svc.CreateParentInvitation(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating parent invitation")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *invitationApi) query(ctx echo.Context) error {
	filter := &invitation.QueryFilter{
		Email: core.CleanString(ctx.QueryParam("email"), true /* lower */),
		Type:  invitation.Type(ctx.QueryParam("type")),
	}
	for _, s := range queryList(ctx, "status") {
		filter.Statuses = append(filter.Statuses, invitation.Status(s))
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	invs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying invitations")
	}
	if invs == nil {
		invs = []invitation.Invitation{}
	}
	return ctx.JSON(http.StatusOK, invs)
}

func (api *invitationApi) inviteCoach(ctx echo.Context) error {
	var data invitation.CoachInvite
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CoachInvite")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	data.InvitedBy = claims.Email

	inv, err := api.svc.CreateCoachInvitation(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating coach invitation")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *invitationApi) revoke(ctx echo.Context) error {
	inv, err := api.svc.Revoke(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "revoking invitation")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invitationApi) cancel(ctx echo.Context) error {
	inv, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling invitation")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invitationApi) resend(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	inv, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if !inv.IsPending() {
		return invitation.ErrNotPending
	}

	res := api.svc.SendInvitationEmail(rctx, inv)
	if res.Err != nil {
		return ctx.JSON(http.StatusBadGateway, ResendResponse{Error: res.Err.Error(), ErrorKind: res.ErrorKind()})
	}
	return ctx.JSON(http.StatusOK, ResendResponse{Success: true, MessageID: res.MessageID})
}

func (api *invitationApi) expire(ctx echo.Context) error {
	n, err := api.svc.ExpireStale(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "expiring invitations")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"expired": n})
}
