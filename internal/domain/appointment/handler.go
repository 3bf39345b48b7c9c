package appointment

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/appointments", h.list)
	g.POST("/appointments", h.create)
	g.GET("/appointments/upcoming", h.upcoming)
	g.GET("/appointments/today", h.today)
	g.GET("/appointments/:id", h.get)
	g.POST("/appointments/:id/confirm", h.confirm)
	g.POST("/appointments/:id/complete", h.complete)
	g.POST("/appointments/:id/cancel", h.cancel)
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.Create(c.Request().Context(), auth.MustPrincipal(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id")
	}
	a, err := h.svc.Get(c.Request().Context(), id, auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) list(c echo.Context) error {
	var f Filter
	if st := c.QueryParam("status"); st != "" {
		f.Statuses = []Status{Status(st)}
	}
	page := pagination.FromContext(c)
	appts, total, err := h.svc.List(c.Request().Context(), auth.MustPrincipal(c), f, page.Limit, page.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, page))
}

func (h *Handler) upcoming(c echo.Context) error {
	page := pagination.FromContext(c)
	appts, total, err := h.svc.ListUpcoming(c.Request().Context(), auth.MustPrincipal(c), page.Limit, page.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, page))
}

func (h *Handler) today(c echo.Context) error {
	page := pagination.FromContext(c)
	appts, total, err := h.svc.ListToday(c.Request().Context(), auth.MustPrincipal(c), page.Limit, page.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, page))
}

func (h *Handler) confirm(c echo.Context) error {
	return h.doTransition(c, h.svc.Confirm)
}

func (h *Handler) complete(c echo.Context) error {
	return h.doTransition(c, h.svc.Complete)
}

func (h *Handler) cancel(c echo.Context) error {
	return h.doTransition(c, h.svc.Cancel)
}

func (h *Handler) doTransition(c echo.Context, fn func(ctx context.Context, id uuid.UUID, actor auth.Principal) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id")
	}
	a, err := fn(c.Request().Context(), id, auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}
