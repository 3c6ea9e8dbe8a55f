package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skinforge/skinforge/internal/modules/model"
	"github.com/skinforge/skinforge/internal/modules/serializer"
	"github.com/skinforge/skinforge/internal/modules/service"
)

// maxImageBytes caps background uploads at 8 MiB.
const maxImageBytes = 8 << 20

type ImageHandler struct {
	svc service.ProjectService
}

func NewImageHandler(svc service.ProjectService) *ImageHandler {
	return &ImageHandler{svc: svc}
}

type UploadImageReq struct {
	Orientation model.Orientation `form:"orientation"`
}

// UploadBackgroundImage stores a background image for the active project and
// attaches it to the requested orientation slot. The multipart field is
// "file"; an empty orientation targets the active one.
func (h *ImageHandler) UploadBackgroundImage(c *gin.Context) {
	req := UploadImageReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if req.Orientation != "" && !req.Orientation.Valid() {
		c.JSON(http.StatusBadRequest, serializer.ParamErr(fmt.Sprintf("unknown orientation %q", req.Orientation), nil))
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("missing file", err))
		return
	}
	if fh.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("file too large", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	bg, err := h.svc.SaveProjectImage(c.Request.Context(), service.SaveProjectImageInput{
		FileName:    fh.Filename,
		Data:        data,
		Orientation: req.Orientation,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoActiveProject) {
			c.JSON(http.StatusConflict, serializer.Err(http.StatusConflict, "no active project", nil))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: bg})
}

// UploadControlImage stores a custom thumbstick image for one control of the
// active project.
func (h *ImageHandler) UploadControlImage(c *gin.Context) {
	controlID := c.Param("control_id")

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("missing file", err))
		return
	}
	if fh.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("file too large", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	img, err := h.svc.SaveControlImage(c.Request.Context(), service.SaveControlImageInput{
		ControlID: controlID,
		FileName:  fh.Filename,
		Data:      data,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoActiveProject) {
			c.JSON(http.StatusConflict, serializer.Err(http.StatusConflict, "no active project", nil))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: img})
}
