package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

type userApi struct {
	svc *user.Service
}

// MeResponse is the signed-in user with the coaching profile filled during onboarding.
type MeResponse struct {
	user.User
	Profile *user.Profile `json:"profile,omitempty"`
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := userApi{svc: svc}

	ug := g.Group("/users", jwt)
	ug.GET("", api.query, adminMiddleware)
	ug.GET("/me", api.me)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := &user.QueryFilter{Search: ctx.QueryParam("search")}
	for _, r := range queryList(ctx, "role") {
		role, ok := user.ParseRole(r)
		if !ok {
			return core.NewValidationError(errors.Errorf("unknown role %q", r), core.FieldError{Field: "role", Error: "unknown role " + r})
		}
		filter.Roles = append(filter.Roles, role)
	}
	if v := ctx.QueryParam("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "is_active", Error: "must be true or false"})
		}
		filter.IsActive = &active
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	res := MeResponse{User: usr}
	prof, err := api.svc.Profile(ctx.Request().Context(), usr.ID)
	switch {
	case err == nil:
		res.Profile = &prof
	case errors.Is(err, user.ErrProfileNotFound):
	default:
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, res)
}
