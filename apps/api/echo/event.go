package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

type eventApi struct {
	svc     *event.Service
	userSvc *user.Service
}

type (
	RegistrationStatusRequest struct {
		Status event.RegistrationStatus `json:"status"`
	}

	EnrollmentStatusRequest struct {
		Status event.EnrollmentStatus `json:"status"`
	}
)

func registerEventAPI(g *echo.Group, jwt, optionalJWT, limit echo.MiddlewareFunc, svc *event.Service, userSvc *user.Service) {
	api := eventApi{svc: svc, userSvc: userSvc}

	// public endpoints
	g.GET("/events", api.queryPublished)
	g.GET("/events/:id", api.retrievePublished)
	g.POST("/events/:id/register", api.register, limit, optionalJWT)

	g.POST("/events/google-calendar-sync", api.syncCalendar, jwt, coachMiddleware)

	// coach endpoints
	cg := g.Group("/coach", jwt, coachMiddleware)
	cg.GET("/events", api.query)
	cg.POST("/events", api.create)
	cg.GET("/events/:id", api.retrieve)
	cg.PUT("/events/:id", api.update)
	cg.DELETE("/events/:id", api.destroy)
	cg.POST("/events/:id/publish", api.publish)
	cg.POST("/events/:id/cancel", api.cancel)
	cg.POST("/events/:id/complete", api.markCompleted)
	cg.GET("/events/:id/registrations", api.registrations)
	cg.POST("/events/:id/notify", api.notify)
	cg.PUT("/registrations/:id", api.updateRegistration)

	cg.GET("/enrollments", api.queryEnrollments)
	cg.POST("/enrollments", api.createEnrollment)
	cg.PUT("/enrollments/:id", api.updateEnrollment)
}

func coachID(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func bindEventFilter(ctx echo.Context) (*event.QueryFilter, error) {
	filter := new(event.QueryFilter)
	for _, s := range queryList(ctx, "status") {
		filter.Statuses = append(filter.Statuses, event.Status(s))
	}
	for _, t := range queryList(ctx, "type") {
		filter.Types = append(filter.Types, event.Type(t))
	}
	var err error
	if filter.From, err = queryTime(ctx, "from"); err != nil {
		return nil, err
	}
	if filter.To, err = queryTime(ctx, "to"); err != nil {
		return nil, err
	}
	return filter, nil
}

func (api *eventApi) queryEvents(ctx echo.Context, filter *event.QueryFilter) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.QueryEvents(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) queryPublished(ctx echo.Context) error {
	filter, err := bindEventFilter(ctx)
	if err != nil {
		return err
	}
	filter.CoachID = ctx.QueryParam("coach_id")
	filter.Statuses = []event.Status{event.StatusPublished}
	return api.queryEvents(ctx, filter)
}

func (api *eventApi) retrievePublished(ctx echo.Context) error {
	ev, err := api.svc.GetEvent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if ev.Status != event.StatusPublished {
		return event.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) register(ctx echo.Context) error {
	var data event.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	if claims, err := getContextClaims(ctx); err == nil {
		data.ParentUserID = claims.Subject
	}

	reg, err := api.svc.Register(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "registering to event")
	}
	return ctx.JSON(http.StatusCreated, reg)
}

func (api *eventApi) query(ctx echo.Context) error {
	filter, err := bindEventFilter(ctx)
	if err != nil {
		return err
	}
	if filter.CoachID, err = coachID(ctx); err != nil {
		return err
	}
	return api.queryEvents(ctx, filter)
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}

	ev, err := api.svc.CreateEvent(ctx.Request().Context(), coach, data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}
	ev, err := api.svc.GetCoachEvent(ctx.Request().Context(), coach, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}

	ev, err := api.svc.UpdateEvent(ctx.Request().Context(), coach, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteEvent(ctx.Request().Context(), coach, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) setStatus(ctx echo.Context, fn func(coachID, id string) (event.Event, error)) error {
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}
	ev, err := fn(coach, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "changing event status")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) publish(ctx echo.Context) error {
	return api.setStatus(ctx, func(coach, id string) (event.Event, error) {
		return api.svc.Publish(ctx.Request().Context(), coach, id)
	})
}

func (api *eventApi) cancel(ctx echo.Context) error {
	return api.setStatus(ctx, func(coach, id string) (event.Event, error) {
		return api.svc.Cancel(ctx.Request().Context(), coach, id)
	})
}

func (api *eventApi) markCompleted(ctx echo.Context) error {
	return api.setStatus(ctx, func(coach, id string) (event.Event, error) {
		return api.svc.MarkCompleted(ctx.Request().Context(), coach, id)
	})
}

func (api *eventApi) registrations(ctx echo.Context) error {
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}
	var statuses []event.RegistrationStatus
	for _, s := range queryList(ctx, "status") {
		statuses = append(statuses, event.RegistrationStatus(s))
	}

	regs, err := api.svc.Registrations(ctx.Request().Context(), coach, ctx.Param("id"), statuses...)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	if regs == nil {
		regs = []event.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *eventApi) updateRegistration(ctx echo.Context) error {
	var data RegistrationStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegistrationStatusRequest")
	}
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}

	reg, err := api.svc.UpdateRegistrationStatus(ctx.Request().Context(), coach, ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *eventApi) notify(ctx echo.Context) error {
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}
	claims, _ := getContextClaims(ctx)
	name := claims.Email
	if usr, err := getContextUser(ctx, api.userSvc); err == nil {
		name = core.FirstNonEmpty(usr.FullName(), name)
	}

	n, err := api.svc.NotifyRegistrants(ctx.Request().Context(), coach, ctx.Param("id"), name)
	if err != nil {
		return errors.Wrap(err, "notifying registrants")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"notified": n})
}

func (api *eventApi) queryEnrollments(ctx echo.Context) error {
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}
	filter := &event.EnrollmentFilter{CoachID: coach, Search: core.CleanString(ctx.QueryParam("search"))}
	for _, s := range queryList(ctx, "status") {
		filter.Statuses = append(filter.Statuses, event.EnrollmentStatus(s))
	}

	enrs, err := api.svc.QueryEnrollments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []event.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *eventApi) createEnrollment(ctx echo.Context) error {
	var data event.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}

	enr, err := api.svc.CreateEnrollment(ctx.Request().Context(), coach, data)
	if err != nil {
		return errors.Wrap(err, "creating enrollment")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *eventApi) updateEnrollment(ctx echo.Context) error {
	var data EnrollmentStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentStatusRequest")
	}
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}

	enr, err := api.svc.UpdateEnrollmentStatus(ctx.Request().Context(), coach, ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *eventApi) syncCalendar(ctx echo.Context) error {
	coach, err := coachID(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.SyncCalendar(ctx.Request().Context(), coach)
	if err != nil {
		return errors.Wrap(err, "syncing calendar")
	}
	return ctx.JSON(http.StatusOK, res)
}
