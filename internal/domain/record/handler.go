package record

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
	g.GET("/medical-records", h.list)
	g.POST("/medical-records", h.create)
	g.GET("/medical-records/patient-history", h.patientHistory)
	g.GET("/medical-records/:id", h.get)
	g.PUT("/medical-records/:id", h.update)
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	rec, err := h.svc.Create(c.Request().Context(), auth.MustPrincipal(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid record id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id, auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) list(c echo.Context) error {
	page := pagination.FromContext(c)
	recs, total, err := h.svc.List(c.Request().Context(), auth.MustPrincipal(c), page.Limit, page.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, total, page))
}

func (h *Handler) patientHistory(c echo.Context) error {
	raw := c.QueryParam("patient_id")
	if raw == "" {
		return apperr.Validation("patient_id query parameter is required")
	}
	patientID, err := uuid.Parse(raw)
	if err != nil {
		return apperr.Validation("invalid patient_id")
	}
	recs, err := h.svc.PatientHistory(c.Request().Context(), auth.MustPrincipal(c), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid record id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	rec, err := h.svc.Update(c.Request().Context(), id, auth.MustPrincipal(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
