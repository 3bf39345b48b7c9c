package profile

import (
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
	g.GET("/patient-profiles", h.list)
	g.POST("/patient-profiles", h.create)
	g.GET("/patient-profiles/:id", h.get)
	g.PUT("/patient-profiles/:id", h.update)
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	p, err := h.svc.Create(c.Request().Context(), auth.MustPrincipal(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid profile id")
	}
	p, err := h.svc.Get(c.Request().Context(), id, auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) list(c echo.Context) error {
	page := pagination.FromContext(c)
	profiles, total, err := h.svc.List(c.Request().Context(), auth.MustPrincipal(c), page.Limit, page.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(profiles, total, page))
}

func (h *Handler) update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid profile id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	p, err := h.svc.Update(c.Request().Context(), id, auth.MustPrincipal(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
