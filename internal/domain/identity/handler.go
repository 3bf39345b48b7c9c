package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/pkg/pagination"
)

type Handler struct {
	svc    *Service
	issuer *auth.TokenIssuer
}

func NewHandler(svc *Service, issuer *auth.TokenIssuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

// RegisterPublicRoutes mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublicRoutes(e *echo.Echo) {
	e.POST("/users", h.register)
	e.POST("/auth/login", h.login)
}

// RegisterRoutes mounts the endpoints behind the auth middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/users", h.list, auth.RequireRole(auth.RoleAdmin))
	g.GET("/users/:id", h.get)
	g.PUT("/users/:id", h.update)
}

func (h *Handler) register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	u, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	token, err := h.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}

func (h *Handler) list(c echo.Context) error {
	p := auth.MustPrincipal(c)
	page := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), p, page.Limit, page.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, page))
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	u, err := h.svc.Get(c.Request().Context(), id, auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	u, err := h.svc.Update(c.Request().Context(), id, auth.MustPrincipal(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
