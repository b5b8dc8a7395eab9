package auditlog

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/chartnotes/internal/platform/auth"
	"github.com/ehr/chartnotes/internal/platform/export"
	"github.com/ehr/chartnotes/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/audit-logs", h.Search)
	admin.GET("/audit-logs/export", h.Export)
}

func (h *Handler) Search(c echo.Context) error {
	pg := pagination.FromContextWithDefault(c, DefaultPageSize)
	entries, total, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func (h *Handler) Export(c echo.Context) error {
	wb, err := h.svc.Export(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer wb.Close()

	c.Response().Header().Set(echo.HeaderContentType, export.ContentType)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", h.svc.ExportFileName()))
	c.Response().WriteHeader(http.StatusOK)
	_, err = wb.WriteTo(c.Response())
	return err
}
