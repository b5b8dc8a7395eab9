package assessment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/chartnotes/internal/domain/document"
	"github.com/ehr/chartnotes/internal/domain/patient"
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
	g := api.Group("", auth.RequireRole(auth.RoleProvider))
	g.GET("/assessment-tools", h.ListTools)
	g.GET("/assessment-tools/:id", h.GetTool)
	g.POST("/assessments", h.Create)
	g.GET("/assessments/:id", h.Get)
	g.GET("/assessments/:id/export", h.Export)
	g.POST("/assessments/:id/responses", h.Submit)
	g.POST("/assessments/:id/document", h.AttachDocument)
	g.DELETE("/assessments/:id/document", h.DetachDocument)
	g.GET("/patients/:id/assessments", h.ListByPatient)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/assessments/:id/invalidate", h.Invalidate)
}

type CreateRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	ToolID    uuid.UUID `json:"tool_id"`
	EntryMode string    `json:"entry_mode"`
}

// SubmitRequest carries answers keyed by question ID.
type SubmitRequest struct {
	Answers map[uuid.UUID]string `json:"answers"`
	Action  string               `json:"action"`
}

type AttachRequest struct {
	DocumentID uuid.UUID `json:"document_id"`
}

type InvalidateRequest struct {
	Reason string `json:"reason"`
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrToolNotFound),
		errors.Is(err, patient.ErrNotFound), errors.Is(err, document.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotDraft), errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyInvalid):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownQuestion), errors.Is(err, ErrInvalidAction), errors.Is(err, ErrInvalidEntryMode),
		errors.Is(err, ErrDocumentMismatch), errors.Is(err, ErrToolInactive), errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrAssessorRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ListTools(c echo.Context) error {
	tools, err := h.svc.ListTools(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if tools == nil {
		tools = []*Tool{}
	}
	return c.JSON(http.StatusOK, tools)
}

func (h *Handler) GetTool(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetTool(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	assessor, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	res, err := h.svc.CreateResult(c.Request().Context(), req.PatientID, req.ToolID, assessor, req.EntryMode)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.GetResult(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// Submit answers 422 with the missing questions when completion is refused.
func (h *Handler) Submit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Submit(c.Request().Context(), id, req.Answers, req.Action)
	if verr, ok := IsValidation(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   verr.Error(),
			"missing": verr.Missing,
			"result":  res,
		})
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) AttachDocument(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req AttachRequest
	if err := c.Bind(&req); err != nil || req.DocumentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "document_id is required")
	}
	res, err := h.svc.AttachDocument(c.Request().Context(), id, req.DocumentID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DetachDocument(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.DetachDocument(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Invalidate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req InvalidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Invalidate(c.Request().Context(), id, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Export(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	wb, res, err := h.svc.ExportResult(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	defer wb.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+ExportFileName(res)+`"`)
	c.Response().Header().Set(echo.HeaderContentType, export.ContentType)
	c.Response().WriteHeader(http.StatusOK)
	_, err = wb.WriteTo(c.Response())
	return err
}
