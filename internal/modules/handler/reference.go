package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skinforge/skinforge/internal/modules/reference"
	"github.com/skinforge/skinforge/internal/modules/serializer"
)

type ReferenceHandler struct {
	tables *reference.Tables
}

func NewReferenceHandler(tables *reference.Tables) *ReferenceHandler {
	return &ReferenceHandler{tables: tables}
}

func (h *ReferenceHandler) ListConsoles(c *gin.Context) {
	c.JSON(http.StatusOK, serializer.Response{Data: h.tables.Consoles()})
}

func (h *ReferenceHandler) ListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, serializer.Response{Data: h.tables.Devices()})
}
