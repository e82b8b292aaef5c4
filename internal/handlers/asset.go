package handlers

import (
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/picup/picup/internal/category"
	"github.com/picup/picup/internal/store"
)

// AssetHandler serves GET /asset/:category/:filename, streaming committed
// asset bytes back to the client.
type AssetHandler struct {
	categories *category.Table
	store      *store.Store
	logger     *slog.Logger
}

// NewAssetHandler creates an asset retrieval handler.
func NewAssetHandler(log *slog.Logger, categories *category.Table, st *store.Store) *AssetHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AssetHandler{
		categories: categories,
		store:      st,
		logger:     log.With(slog.String("handler", "asset")),
	}
}

// Register mounts GET /asset/:category/:filename on the Echo instance.
func (h *AssetHandler) Register(e *echo.Echo) {
	e.GET("/asset/:category/:filename", h.Get)
}

// Get streams an asset, or responds 404 with an empty body when the
// category is unknown or the file is absent. A nonzero compress query
// responds 501; compression is reserved and unbuilt.
func (h *AssetHandler) Get(c echo.Context) error {
	categoryName := pathParam(c, "category")
	filename := pathParam(c, "filename")

	if _, ok := h.categories.Lookup(categoryName); !ok {
		return c.NoContent(http.StatusNotFound)
	}

	if v, err := strconv.ParseUint(c.QueryParam("compress"), 10, 32); err == nil && v != 0 {
		return c.NoContent(http.StatusNotImplemented)
	}

	rc, err := h.store.Open(categoryName, filename)
	if err != nil {
		return c.NoContent(http.StatusNotFound)
	}
	defer rc.Close()

	return c.Stream(http.StatusOK, contentType(filename), rc)
}

// pathParam returns the named route parameter with percent-encoding
// undone; the router matches on the escaped path.
func pathParam(c echo.Context, name string) string {
	raw := c.Param(name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return echo.MIMEOctetStream
}
