package terminology

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/chartnotes/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleProvider))
	read.GET("/conditions/suggest", h.Suggest)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/codes", h.Import)
}

func (h *Handler) Suggest(c echo.Context) error {
	out, err := h.svc.Suggest(c.Request().Context(), c.QueryParam("prefix"), c.QueryParam("system"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Import(c echo.Context) error {
	var entries []*CodeEntry
	if err := c.Bind(&entries); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	n, err := h.svc.Import(c.Request().Context(), entries)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": n})
}
