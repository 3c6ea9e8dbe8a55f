package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	mq "github.com/skinforge/skinforge/internal/infra/queue"
	"github.com/skinforge/skinforge/internal/modules/model"
	"github.com/skinforge/skinforge/internal/modules/reference"
	"github.com/skinforge/skinforge/internal/modules/repo"
	"github.com/skinforge/skinforge/internal/pkg/codec"
	"go.uber.org/zap"
)

// Routing keys for project lifecycle events.
const (
	EventProjectSaved   = "project.saved"
	EventProjectDeleted = "project.deleted"
)

// ProjectUpdates is a partial update to a project. Nil fields are left
// untouched; Orientations is a full-object replace, not a deep merge.
type ProjectUpdates struct {
	Name               *string
	Identifier         *string
	Console            *model.Console
	Device             *model.Device
	CurrentOrientation *model.Orientation
	Orientations       *model.OrientationSet
}

type CreateProjectInput struct {
	Name       string
	OwnerEmail string
	Initial    *ProjectUpdates
}

// OrientationUpdates is the shallow merge unit for orientation data: each
// non-nil field replaces its counterpart wholesale. Callers pass complete
// arrays, never partial deltas.
type OrientationUpdates struct {
	Controls        []model.Control
	Screens         []model.Screen
	MenuInsets      *model.MenuInsets
	BackgroundImage *model.BackgroundImage
}

type SaveProjectImageInput struct {
	FileName    string
	Data        []byte
	Orientation model.Orientation // empty means the active orientation
}

type SaveControlImageInput struct {
	ControlID string
	FileName  string
	Data      []byte
}

// DeleteResult reports the two-phase cascade delete. ImagesCleaned is false
// when blob cleanup partially failed; the record itself is still removed.
type DeleteResult struct {
	ImagesCleaned bool `json:"images_cleaned"`
	ImagesRemoved int  `json:"images_removed"`
}

// ProjectService is the sole mutation gateway for the durable project
// collection. All convenience save operations funnel into SaveProject.
type ProjectService interface {
	CreateProject(ctx context.Context, in CreateProjectInput) (string, error)
	LoadProject(ctx context.Context, id string) error
	ActiveProject(ctx context.Context) (*model.Project, error)

	SaveProject(ctx context.Context, updates ProjectUpdates) error
	SaveOrientationData(ctx context.Context, data OrientationUpdates, orientation model.Orientation) error
	SaveProjectWithOrientation(ctx context.Context, updates ProjectUpdates, data *OrientationUpdates, orientation model.Orientation) error
	SaveProjectImage(ctx context.Context, in SaveProjectImageInput) (*model.BackgroundImage, error)
	SaveControlImage(ctx context.Context, in SaveControlImageInput) (*model.StoredImage, error)

	DeleteProject(ctx context.Context, id string) (*DeleteResult, error)

	ResolveAll(ctx context.Context) ([]*model.Project, error)
	ResolveProject(ctx context.Context, id string) (*model.Project, error)
}

type projectService struct {
	r      repo.ProjectRepo
	images repo.ImageRepo
	tables *reference.Tables
	pub    *mq.Publisher
	log    *zap.Logger
}

func NewProjectService(r repo.ProjectRepo, images repo.ImageRepo, tables *reference.Tables, pub *mq.Publisher, log *zap.Logger) ProjectService {
	return &projectService{r: r, images: images, tables: tables, pub: pub, log: log}
}

func (s *projectService) CreateProject(ctx context.Context, in CreateProjectInput) (string, error) {
	p := &model.Project{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		CurrentOrientation: model.OrientationPortrait,
		Orientations:       model.NewOrientationSet(),
		OwnerEmail:         in.OwnerEmail,
		LastModified:       time.Now().UTC(),
	}
	if in.Initial != nil {
		applyUpdates(p, *in.Initial)
	}

	m := codec.ToMinimal(p)
	if m == nil {
		// Not serializable until console and device are configured; drop the
		// create without touching the store or the active pointer.
		s.log.Sugar().Warnw("dropping unserializable project create", "name", in.Name)
		return "", nil
	}

	if err := s.r.Upsert(ctx, *m); err != nil {
		return "", fmt.Errorf("append project record: %w", err)
	}
	if err := s.r.SetCurrentID(ctx, p.ID); err != nil {
		return "", fmt.Errorf("set active project: %w", err)
	}

	s.publish(ctx, EventProjectSaved, m)
	return p.ID, nil
}

// LoadProject sets the active-project pointer. Resolution into a full
// project happens on demand through ActiveProject/ResolveProject.
func (s *projectService) LoadProject(ctx context.Context, id string) error {
	m, err := s.findMinimal(ctx, id)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrProjectNotFound
	}
	return s.r.SetCurrentID(ctx, id)
}

func (s *projectService) ActiveProject(ctx context.Context) (*model.Project, error) {
	id, err := s.r.CurrentID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return s.ResolveProject(ctx, id)
}

// SaveProject merges updates into the active project and replaces its
// durable record. A missing active project is a no-op.
func (s *projectService) SaveProject(ctx context.Context, updates ProjectUpdates) error {
	active, err := s.ActiveProject(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		return nil
	}

	applyUpdates(active, updates)
	active.LastModified = time.Now().UTC()

	m := codec.ToMinimal(active)
	if m == nil {
		s.log.Sugar().Warnw("dropping unserializable project save", "id", active.ID)
		return nil
	}

	if err := s.r.Upsert(ctx, *m); err != nil {
		return fmt.Errorf("replace project record: %w", err)
	}

	s.publish(ctx, EventProjectSaved, m)
	return nil
}

func (s *projectService) SaveOrientationData(ctx context.Context, data OrientationUpdates, orientation model.Orientation) error {
	return s.SaveProjectWithOrientation(ctx, ProjectUpdates{}, &data, orientation)
}

func (s *projectService) SaveProjectWithOrientation(ctx context.Context, updates ProjectUpdates, data *OrientationUpdates, orientation model.Orientation) error {
	if data == nil {
		return s.SaveProject(ctx, updates)
	}

	active, err := s.ActiveProject(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		return nil
	}

	if orientation == "" {
		orientation = active.CurrentOrientation
	}

	merged := *active.Orientations
	slot := *merged.Get(orientation)
	if data.Controls != nil {
		slot.Controls = data.Controls
	}
	if data.Screens != nil {
		slot.Screens = data.Screens
	}
	if data.MenuInsets != nil {
		slot.MenuInsets = *data.MenuInsets
	}
	if data.BackgroundImage != nil {
		slot.BackgroundImage = data.BackgroundImage
	}
	merged.Set(orientation, slot)
	updates.Orientations = &merged

	return s.SaveProject(ctx, updates)
}

func (s *projectService) SaveProjectImage(ctx context.Context, in SaveProjectImageInput) (*model.BackgroundImage, error) {
	active, err := s.ActiveProject(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveProject
	}

	orientation := in.Orientation
	if orientation == "" {
		orientation = active.CurrentOrientation
	}

	img, err := s.images.Store(ctx, repo.StoreImageInput{
		OwnerKey: BackgroundOwnerKey(active.ID, orientation),
		Kind:     model.ImageKindBackground,
		FileName: in.FileName,
		Data:     in.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("store background image: %w", err)
	}

	bg := &model.BackgroundImage{
		FileName:       in.FileName,
		URL:            img.URL,
		HasStoredImage: true,
	}

	if err := s.SaveOrientationData(ctx, OrientationUpdates{BackgroundImage: bg}, orientation); err != nil {
		return nil, err
	}
	return bg, nil
}

// SaveControlImage stores a custom thumbstick image for one control of the
// active project. Successive uploads for the same control get distinct owner
// keys; reads pick the most recent via the control-id sub key.
func (s *projectService) SaveControlImage(ctx context.Context, in SaveControlImageInput) (*model.StoredImage, error) {
	if in.ControlID == "" {
		return nil, fmt.Errorf("control id is empty")
	}

	active, err := s.ActiveProject(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveProject
	}

	img, err := s.images.Store(ctx, repo.StoreImageInput{
		OwnerKey: ThumbstickOwnerKey(active.ID, in.ControlID, time.Now().UTC()),
		Kind:     model.ImageKindThumbstick,
		SubKey:   in.ControlID,
		FileName: in.FileName,
		Data:     in.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("store thumbstick image: %w", err)
	}
	return img, nil
}

// DeleteProject runs the two-phase cascade: best-effort blob cleanup first,
// then removal of the durable record. Blob failures are reported in the
// result but never block record removal.
func (s *projectService) DeleteProject(ctx context.Context, id string) (*DeleteResult, error) {
	result := &DeleteResult{ImagesCleaned: true}

	removed, err := s.images.DeleteAllForOwner(ctx, id)
	result.ImagesRemoved = removed
	if err != nil {
		result.ImagesCleaned = false
		s.log.Sugar().Warnw("image cleanup incomplete", "project_id", id, "removed", removed, "err", err)
	}

	deleted, err := s.r.Delete(ctx, id)
	if err != nil {
		return result, fmt.Errorf("remove project record: %w", err)
	}
	if !deleted {
		return result, ErrProjectNotFound
	}

	current, err := s.r.CurrentID(ctx)
	if err == nil && current == id {
		if cerr := s.r.ClearCurrentID(ctx); cerr != nil {
			s.log.Sugar().Warnw("failed to clear active project pointer", "err", cerr)
		}
	}

	s.publish(ctx, EventProjectDeleted, map[string]string{"id": id})
	return result, nil
}

// ResolveAll maps every durable record through the codec and hydrates stored
// background image URLs. Records that no longer resolve against the
// reference tables are dropped from the view, not surfaced as errors.
func (s *projectService) ResolveAll(ctx context.Context) ([]*model.Project, error) {
	minimals, err := s.r.List(ctx)
	if err != nil {
		return nil, err
	}

	projects := make([]*model.Project, 0, len(minimals))
	for i := range minimals {
		p := s.resolve(ctx, &minimals[i])
		if p == nil {
			s.log.Sugar().Warnw("dropping unresolvable project record",
				"id", minimals[i].ID,
				"gameTypeIdentifier", minimals[i].GameTypeIdentifier,
				"deviceModel", minimals[i].DeviceModel,
			)
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (s *projectService) ResolveProject(ctx context.Context, id string) (*model.Project, error) {
	m, err := s.findMinimal(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	return s.resolve(ctx, m), nil
}

func (s *projectService) resolve(ctx context.Context, m *model.MinimalProject) *model.Project {
	p := codec.FromMinimal(m, s.tables.Consoles(), s.tables.Devices())
	if p == nil {
		return nil
	}

	for _, orientation := range []model.Orientation{model.OrientationPortrait, model.OrientationLandscape} {
		data := p.Orientations.Get(orientation)
		if data.BackgroundImage == nil {
			continue
		}
		// Hydration races a concurrent delete by design; a missing image
		// reads as "no image yet", keeping whatever URL the record carried.
		img, err := s.images.Get(ctx, BackgroundOwnerKey(p.ID, orientation), model.ImageKindBackground, "")
		if err != nil {
			s.log.Sugar().Warnw("background image hydration failed", "project_id", p.ID, "orientation", orientation, "err", err)
			continue
		}
		if img != nil {
			data.BackgroundImage.URL = img.URL
			if data.BackgroundImage.FileName == "" {
				data.BackgroundImage.FileName = img.FileName
			}
		}
	}
	return p
}

func (s *projectService) findMinimal(ctx context.Context, id string) (*model.MinimalProject, error) {
	minimals, err := s.r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range minimals {
		if minimals[i].ID == id {
			return &minimals[i], nil
		}
	}
	return nil, nil
}

func (s *projectService) publish(ctx context.Context, routingKey string, body any) {
	if err := s.pub.PublishJSON(ctx, routingKey, body); err != nil {
		s.log.Sugar().Warnw("failed to publish project event", "routing_key", routingKey, "err", err)
	}
}

func applyUpdates(p *model.Project, u ProjectUpdates) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Identifier != nil {
		p.Identifier = *u.Identifier
	}
	if u.Console != nil {
		p.Console = u.Console
	}
	if u.Device != nil {
		p.Device = u.Device
	}
	if u.CurrentOrientation != nil {
		p.CurrentOrientation = *u.CurrentOrientation
	}
	if u.Orientations != nil {
		p.Orientations = u.Orientations
	}
}

// BackgroundOwnerKey is the blob owner key for an orientation's background
// image. Thumbstick images use ThumbstickOwnerKey instead; both share the
// project id prefix so cascade deletes catch them together.
func BackgroundOwnerKey(projectID string, orientation model.Orientation) string {
	return fmt.Sprintf("%s-%s", projectID, orientation)
}

func ThumbstickOwnerKey(projectID, controlID string, at time.Time) string {
	return fmt.Sprintf("%s_thumbstick_%s_%d", projectID, controlID, at.Unix())
}
