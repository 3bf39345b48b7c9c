package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/dashboard/stats", h.stats, auth.RequireRole(auth.RoleAdmin))
	g.GET("/dashboard/recent-activity", h.recentActivity, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) recentActivity(c echo.Context) error {
	activity, err := h.svc.RecentActivity(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activity)
}
