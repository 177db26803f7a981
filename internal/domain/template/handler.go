package template

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/platform/auth"
	"github.com/consultamed/consultamed/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/templates")
	g.GET("", h.ListTemplates)
	g.POST("", h.CreateTemplate)
	g.GET("/match", h.MatchTemplate)
	g.GET("/:id", h.GetTemplate)
	g.PUT("/:id", h.UpdateTemplate)
	g.PATCH("/:id", h.UpdateTemplate)
	g.DELETE("/:id", h.DeleteTemplate)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	practitionerID, err := auth.PractitionerIDFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	pg := pagination.FromContextWithDefault(c, DefaultListLimit)
	templates, total, err := h.svc.List(c.Request().Context(), ListFilter{
		PractitionerID: practitionerID,
		Search:         c.QueryParam("search"),
		FavoritesOnly:  c.QueryParam("favorites_only") == "true",
		Limit:          pg.Limit,
		Offset:         pg.Offset,
	})
	if err != nil {
		return apperr.HTTPError(err)
	}
	items := make([]*Response, 0, len(templates))
	for _, t := range templates {
		items = append(items, NewResponse(t))
	}
	return c.JSON(http.StatusOK, &ListResponse{Items: items, Total: total})
}

func (h *Handler) MatchTemplate(c echo.Context) error {
	practitionerID, err := auth.PractitionerIDFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	t, err := h.svc.Match(c.Request().Context(), practitionerID, c.QueryParam("diagnosis"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewResponse(t))
}

func (h *Handler) GetTemplate(c echo.Context) error {
	practitionerID, err := auth.PractitionerIDFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.Get(c.Request().Context(), practitionerID, id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewResponse(t))
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	practitionerID, err := auth.PractitionerIDFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.Create(c.Request().Context(), practitionerID, &req)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, NewResponse(t))
}

func (h *Handler) UpdateTemplate(c echo.Context) error {
	practitionerID, err := auth.PractitionerIDFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.Update(c.Request().Context(), practitionerID, id, &req)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewResponse(t))
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	practitionerID, err := auth.PractitionerIDFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), practitionerID, id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
