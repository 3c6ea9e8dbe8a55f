package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skinforge/skinforge/internal/modules/serializer"
	"github.com/skinforge/skinforge/internal/modules/service"
)

type AutosaveHandler struct {
	autosave *service.AutosaveCoordinator
}

func NewAutosaveHandler(autosave *service.AutosaveCoordinator) *AutosaveHandler {
	return &AutosaveHandler{autosave: autosave}
}

// Notify accepts an editor snapshot and schedules a debounced commit. The
// response only acknowledges receipt; the durable write happens after the
// debounce window, or at shutdown for a still-pending snapshot.
func (h *AutosaveHandler) Notify(c *gin.Context) {
	snapshot := service.AutosaveSnapshot{}
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if snapshot.Orientation != "" && !snapshot.Orientation.Valid() {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("unknown orientation", nil))
		return
	}

	h.autosave.Notify(snapshot)
	c.JSON(http.StatusAccepted, serializer.Response{Msg: "scheduled"})
}
