package search

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/chartnotes/internal/platform/auth"
	"github.com/ehr/chartnotes/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/search", h.Search, auth.RequireRole(auth.RoleProvider))
}

func (h *Handler) Search(c echo.Context) error {
	pg := pagination.FromContext(c)
	res, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), c.QueryParam("type"), pg.Limit, pg.Offset)
	if errors.Is(err, ErrInvalidType) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}
