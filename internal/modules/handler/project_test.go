package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/skinforge/skinforge/internal/middleware"
	"github.com/skinforge/skinforge/internal/modules/model"
	"github.com/skinforge/skinforge/internal/modules/reference"
	"github.com/skinforge/skinforge/internal/modules/serializer"
	"github.com/skinforge/skinforge/internal/modules/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProjectService is a mock implementation of ProjectService
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) CreateProject(ctx context.Context, in service.CreateProjectInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockProjectService) LoadProject(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectService) ActiveProject(ctx context.Context) (*model.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectService) SaveProject(ctx context.Context, updates service.ProjectUpdates) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

func (m *MockProjectService) SaveOrientationData(ctx context.Context, data service.OrientationUpdates, orientation model.Orientation) error {
	args := m.Called(ctx, data, orientation)
	return args.Error(0)
}

func (m *MockProjectService) SaveProjectWithOrientation(ctx context.Context, updates service.ProjectUpdates, data *service.OrientationUpdates, orientation model.Orientation) error {
	args := m.Called(ctx, updates, data, orientation)
	return args.Error(0)
}

func (m *MockProjectService) SaveProjectImage(ctx context.Context, in service.SaveProjectImageInput) (*model.BackgroundImage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BackgroundImage), args.Error(1)
}

func (m *MockProjectService) SaveControlImage(ctx context.Context, in service.SaveControlImageInput) (*model.StoredImage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredImage), args.Error(1)
}

func (m *MockProjectService) DeleteProject(ctx context.Context, id string) (*service.DeleteResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeleteResult), args.Error(1)
}

func (m *MockProjectService) ResolveAll(ctx context.Context) ([]*model.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Project), args.Error(1)
}

func (m *MockProjectService) ResolveProject(ctx context.Context, id string) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func setupProjectRouter(t *testing.T, svc service.ProjectService, email string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tables, err := reference.Load()
	require.NoError(t, err)

	h := NewProjectHandler(svc, tables)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.EmailKey, email)
		c.Next()
	})
	r.GET("/projects", h.GetProjects)
	r.POST("/projects", h.CreateProject)
	r.GET("/projects/current", h.GetActiveProject)
	r.PUT("/projects/current", h.UpdateProject)
	r.PUT("/projects/current/orientations/:orientation", h.SaveOrientation)
	r.POST("/projects/:project_id/load", h.LoadProject)
	r.DELETE("/projects/:project_id", h.DeleteProject)
	return r
}

func resolvedProject(id, owner string) *model.Project {
	return &model.Project{
		ID:           id,
		Name:         "Skin",
		Console:      &model.Console{GameTypeIdentifier: "com.skinforge.game.gba", ShortName: "GBA"},
		Device:       &model.Device{Model: "iphone-15-pro"},
		Orientations: model.NewOrientationSet(),
		OwnerEmail:   owner,
	}
}

func TestProjectHandler_GetProjects_FiltersByOwner(t *testing.T) {
	svc := &MockProjectService{}
	svc.On("ResolveAll", mock.Anything).Return([]*model.Project{
		resolvedProject("mine", "me@example.com"),
		resolvedProject("theirs", "other@example.com"),
		resolvedProject("legacy", ""),
	}, nil)

	r := setupProjectRouter(t, svc, "me@example.com")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []model.Project `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "mine", resp.Data[0].ID)
	assert.Equal(t, "legacy", resp.Data[1].ID)
}

func TestProjectHandler_CreateProject(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setup          func(*MockProjectService)
		expectedStatus int
	}{
		{
			name: "successful create",
			body: `{"name":"My Skin","gameTypeIdentifier":"com.skinforge.game.gba","deviceModel":"iphone-15-pro"}`,
			setup: func(svc *MockProjectService) {
				svc.On("CreateProject", mock.Anything, mock.MatchedBy(func(in service.CreateProjectInput) bool {
					return in.Name == "My Skin" && in.OwnerEmail == "me@example.com" && in.Initial.Console.ShortName == "GBA"
				})).Return("new-id", nil)
				svc.On("ResolveProject", mock.Anything, "new-id").Return(resolvedProject("new-id", "me@example.com"), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unknown console rejected",
			body:           `{"name":"My Skin","gameTypeIdentifier":"com.skinforge.game.nope","deviceModel":"iphone-15-pro"}`,
			setup:          func(svc *MockProjectService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing name rejected",
			body:           `{"gameTypeIdentifier":"com.skinforge.game.gba","deviceModel":"iphone-15-pro"}`,
			setup:          func(svc *MockProjectService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unserializable create surfaces as bad request",
			body: `{"name":"My Skin","gameTypeIdentifier":"com.skinforge.game.gba","deviceModel":"iphone-15-pro"}`,
			setup: func(svc *MockProjectService) {
				svc.On("CreateProject", mock.Anything, mock.Anything).Return("", nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockProjectService{}
			tt.setup(svc)

			r := setupProjectRouter(t, svc, "me@example.com")
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestProjectHandler_CreateProject_UnknownConsoleNamesKey(t *testing.T) {
	svc := &MockProjectService{}
	r := setupProjectRouter(t, svc, "me@example.com")

	w := httptest.NewRecorder()
	body := `{"name":"My Skin","gameTypeIdentifier":"com.skinforge.game.nope","deviceModel":"iphone-15-pro"}`
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp serializer.Response
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Msg, `"com.skinforge.game.nope"`)
}

func TestProjectHandler_SaveOrientation(t *testing.T) {
	svc := &MockProjectService{}
	svc.On("SaveOrientationData", mock.Anything, mock.MatchedBy(func(u service.OrientationUpdates) bool {
		return len(u.Controls) == 1 && u.Screens == nil
	}), model.OrientationLandscape).Return(nil)

	r := setupProjectRouter(t, svc, "me@example.com")
	w := httptest.NewRecorder()
	body := `{"controls":[{"inputs":"a","frame":{"x":0,"y":0,"width":50,"height":50}}]}`
	req := httptest.NewRequest(http.MethodPut, "/projects/current/orientations/landscape", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestProjectHandler_SaveOrientation_RejectsUnknownSlot(t *testing.T) {
	svc := &MockProjectService{}
	r := setupProjectRouter(t, svc, "me@example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/projects/current/orientations/diagonal", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandler_DeleteProject(t *testing.T) {
	tests := []struct {
		name           string
		projectID      string
		setup          func(*MockProjectService)
		expectedStatus int
	}{
		{
			name:      "successful delete",
			projectID: "mine",
			setup: func(svc *MockProjectService) {
				svc.On("ResolveProject", mock.Anything, "mine").Return(resolvedProject("mine", "me@example.com"), nil)
				svc.On("DeleteProject", mock.Anything, "mine").Return(&service.DeleteResult{ImagesCleaned: true, ImagesRemoved: 1}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "foreign project forbidden",
			projectID: "theirs",
			setup: func(svc *MockProjectService) {
				svc.On("ResolveProject", mock.Anything, "theirs").Return(resolvedProject("theirs", "other@example.com"), nil)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:      "unknown project",
			projectID: "nope",
			setup: func(svc *MockProjectService) {
				svc.On("ResolveProject", mock.Anything, "nope").Return(nil, nil)
				svc.On("DeleteProject", mock.Anything, "nope").Return(nil, service.ErrProjectNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockProjectService{}
			tt.setup(svc)

			r := setupProjectRouter(t, svc, "me@example.com")
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodDelete, "/projects/"+tt.projectID, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}
