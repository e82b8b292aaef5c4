package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/picup/picup/internal/api"
)

// CategoryHandler serves GET /category/:category, the reserved asset
// listing endpoint.
type CategoryHandler struct {
	logger *slog.Logger
}

// NewCategoryHandler creates a category listing handler.
func NewCategoryHandler(log *slog.Logger) *CategoryHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CategoryHandler{logger: log.With(slog.String("handler", "category"))}
}

// Register mounts GET /category/:category on the Echo instance.
func (h *CategoryHandler) Register(e *echo.Echo) {
	e.GET("/category/:category", h.List)
}

// List is reserved (page, limit, and precache parameters are accepted
// but unused) and always responds NotImplemented.
func (h *CategoryHandler) List(c echo.Context) error {
	code := api.CodeNotImplemented
	return c.JSON(code.HTTPStatus(), api.No[[]string](code, "not implemented"))
}
