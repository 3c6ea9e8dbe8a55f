package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skinforge/skinforge/internal/middleware"
	"github.com/skinforge/skinforge/internal/modules/model"
	"github.com/skinforge/skinforge/internal/modules/reference"
	"github.com/skinforge/skinforge/internal/modules/serializer"
	"github.com/skinforge/skinforge/internal/modules/service"
)

type ProjectHandler struct {
	svc    service.ProjectService
	tables *reference.Tables
}

func NewProjectHandler(svc service.ProjectService, tables *reference.Tables) *ProjectHandler {
	return &ProjectHandler{svc: svc, tables: tables}
}

type CreateProjectReq struct {
	Name               string `json:"name" binding:"required"`
	GameTypeIdentifier string `json:"gameTypeIdentifier" binding:"required"`
	DeviceModel        string `json:"deviceModel" binding:"required"`
	Identifier         string `json:"identifier"`
}

type UpdateProjectReq struct {
	Name               *string            `json:"name"`
	Identifier         *string            `json:"identifier"`
	CurrentOrientation *model.Orientation `json:"currentOrientation"`
	GameTypeIdentifier *string            `json:"gameTypeIdentifier"`
	DeviceModel        *string            `json:"deviceModel"`
}

type SaveOrientationReq struct {
	Controls   []model.Control   `json:"controls"`
	Screens    []model.Screen    `json:"screens"`
	MenuInsets *model.MenuInsets `json:"menuInsets"`
}

// GetProjects lists the caller's projects, fully resolved. Records that no
// longer resolve against the reference tables are omitted.
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	email := middleware.OwnerEmail(c)

	projects, err := h.svc.ResolveAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	owned := make([]*model.Project, 0, len(projects))
	for _, p := range projects {
		if p.OwnerEmail == "" || p.OwnerEmail == email {
			owned = append(owned, p)
		}
	}

	c.JSON(http.StatusOK, serializer.Response{Data: owned})
}

// CreateProject creates a project and makes it the active one. The console
// and device come from the reference tables; unknown keys are rejected
// before the service ever sees them.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	req := CreateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	console := h.tables.Console(req.GameTypeIdentifier)
	if console == nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr(fmt.Sprintf("unknown console %q", req.GameTypeIdentifier), nil))
		return
	}
	device := h.tables.Device(req.DeviceModel)
	if device == nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr(fmt.Sprintf("unknown device %q", req.DeviceModel), nil))
		return
	}

	initial := service.ProjectUpdates{Console: console, Device: device}
	if req.Identifier != "" {
		initial.Identifier = &req.Identifier
	}

	id, err := h.svc.CreateProject(c.Request.Context(), service.CreateProjectInput{
		Name:       req.Name,
		OwnerEmail: middleware.OwnerEmail(c),
		Initial:    &initial,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("project is not serializable", nil))
		return
	}

	p, err := h.svc.ResolveProject(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: p})
}

// GetActiveProject returns the resolved active project, or an empty
// response when no project is loaded.
func (h *ProjectHandler) GetActiveProject(c *gin.Context) {
	p, err := h.svc.ActiveProject(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

// LoadProject makes the named project the active one.
func (h *ProjectHandler) LoadProject(c *gin.Context) {
	id := c.Param("project_id")
	if !h.authorize(c, id) {
		return
	}

	if err := h.svc.LoadProject(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("project not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	p, err := h.svc.ActiveProject(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

// UpdateProject applies a partial update to the active project. With no
// active project the update is accepted and discarded.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	req := UpdateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	updates := service.ProjectUpdates{
		Name:               req.Name,
		Identifier:         req.Identifier,
		CurrentOrientation: req.CurrentOrientation,
	}
	if req.GameTypeIdentifier != nil {
		console := h.tables.Console(*req.GameTypeIdentifier)
		if console == nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr(fmt.Sprintf("unknown console %q", *req.GameTypeIdentifier), nil))
			return
		}
		updates.Console = console
	}
	if req.DeviceModel != nil {
		device := h.tables.Device(*req.DeviceModel)
		if device == nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr(fmt.Sprintf("unknown device %q", *req.DeviceModel), nil))
			return
		}
		updates.Device = device
	}

	if err := h.svc.SaveProject(c.Request.Context(), updates); err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Msg: "saved"})
}

// SaveOrientation replaces the provided layout fields of one orientation
// slot on the active project. Omitted fields are left untouched.
func (h *ProjectHandler) SaveOrientation(c *gin.Context) {
	orientation := model.Orientation(c.Param("orientation"))
	if !orientation.Valid() {
		c.JSON(http.StatusBadRequest, serializer.ParamErr(fmt.Sprintf("unknown orientation %q", orientation), nil))
		return
	}

	req := SaveOrientationReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	err := h.svc.SaveOrientationData(c.Request.Context(), service.OrientationUpdates{
		Controls:   req.Controls,
		Screens:    req.Screens,
		MenuInsets: req.MenuInsets,
	}, orientation)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Msg: "saved"})
}

// DeleteProject removes a project and its stored images. Partial image
// cleanup is reported in the result, not surfaced as an error.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id := c.Param("project_id")
	if !h.authorize(c, id) {
		return
	}

	result, err := h.svc.DeleteProject(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("project not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: result})
}

// authorize rejects access to records owned by someone else. Ownerless
// records predate scoping and stay reachable. A missing record falls
// through so the operation itself can report not-found.
func (h *ProjectHandler) authorize(c *gin.Context, id string) bool {
	p, err := h.svc.ResolveProject(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return false
	}
	if p != nil && p.OwnerEmail != "" && p.OwnerEmail != middleware.OwnerEmail(c) {
		c.JSON(http.StatusForbidden, serializer.Err(http.StatusForbidden, "project belongs to another user", nil))
		return false
	}
	return true
}
