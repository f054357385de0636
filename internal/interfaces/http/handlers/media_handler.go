package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/infrastructure/assets"
)

// MediaHandler serves committed assets from the local backend.
type MediaHandler struct {
	store  *assets.Local
	logger *zap.Logger
}

// NewMediaHandler 创建静态音频处理器
func NewMediaHandler(store *assets.Local, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{store: store, logger: logger}
}

// Serve 处理 GET /media/:name
func (h *MediaHandler) Serve(c *gin.Context) {
	name := c.Param("name")
	if !assets.ValidName(name) {
		c.Status(http.StatusNotFound)
		return
	}
	path, err := h.store.Path(name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Error("Failed to open asset", zap.String("name", name), zap.Error(err))
		}
		c.Status(http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Content-Type", "audio/mpeg")
	c.Header("Cache-Control", "public, max-age=3600")
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}
