// Package handlers provides the HTTP API handlers for the PicUp server.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/picup/picup/internal/api"
	"github.com/picup/picup/internal/upload"
)

// UploadHandler serves POST /upload, the batch ingestion endpoint.
type UploadHandler struct {
	service *upload.Service
	logger  *slog.Logger
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(log *slog.Logger, service *upload.Service) *UploadHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UploadHandler{
		service: service,
		logger:  log.With(slog.String("handler", "upload")),
	}
}

// Register mounts POST /upload on the Echo instance.
func (h *UploadHandler) Register(e *echo.Echo) {
	e.POST("/upload", h.Upload)
}

// Upload runs the ingestion pipeline over the request's multipart body
// and responds with one public URL per file, or a failure envelope.
// Optional query parameters fall back to their defaults (override=false,
// compress=0) when absent or unparsable.
func (h *UploadHandler) Upload(c echo.Context) error {
	req := upload.Request{
		Token:    c.QueryParam("access_token"),
		Category: c.QueryParam("category"),
	}
	if v, err := strconv.ParseBool(c.QueryParam("override")); err == nil {
		req.Override = v
	}
	if v, err := strconv.ParseUint(c.QueryParam("compress"), 10, 32); err == nil {
		req.Compress = uint(v)
	}

	mr, err := c.Request().MultipartReader()
	if err != nil {
		return c.JSON(http.StatusBadRequest, api.No[[]string](api.CodeBadFile, "bad multipart body"))
	}

	urls, err := h.service.Process(c.Request().Context(), req, upload.NewMultipartSource(mr))
	if err != nil {
		ue, ok := err.(*upload.Error)
		if !ok {
			h.logger.Error("upload failed", slog.Any("error", err))
			return c.JSON(http.StatusInternalServerError, api.No[[]string](api.CodeInternalError, "internal file system error"))
		}
		return c.JSON(ue.Code.HTTPStatus(), api.No[[]string](ue.Code, ue.Message))
	}

	return c.JSON(http.StatusOK, api.OK(urls))
}
