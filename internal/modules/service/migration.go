package service

import (
	"context"
	"fmt"

	"github.com/skinforge/skinforge/internal/modules/model"
	"github.com/skinforge/skinforge/internal/modules/repo"
	"github.com/skinforge/skinforge/internal/pkg/codec"
	"go.uber.org/zap"
)

// MigrationService performs the one-shot upgrade from the legacy v1 durable
// format to the minimal v2 format. Run must complete before any other
// project operation reads the store; main gates startup on it.
type MigrationService interface {
	NeedsMigration(ctx context.Context) (bool, error)
	Run(ctx context.Context) error
}

type migrationService struct {
	r   repo.ProjectRepo
	log *zap.Logger
}

func NewMigrationService(r repo.ProjectRepo, log *zap.Logger) MigrationService {
	return &migrationService{r: r, log: log}
}

// NeedsMigration is true iff legacy records exist and no v2 collection has
// been written yet. The conjunction is the idempotence guard: it prevents
// clobbering an already-migrated store and re-migrating after the v2 store
// has been independently populated.
func (s *migrationService) NeedsMigration(ctx context.Context) (bool, error) {
	_, legacyExists, err := s.r.LegacyList(ctx)
	if err != nil {
		return false, err
	}
	if !legacyExists {
		return false, nil
	}

	hasV2, err := s.r.HasCollection(ctx)
	if err != nil {
		return false, err
	}
	return !hasV2, nil
}

// Run converts the legacy batch and writes it to the v2 store in one shot.
// Per-record failures are logged and skipped; the legacy store is retained
// untouched as a backup.
func (s *migrationService) Run(ctx context.Context) error {
	needed, err := s.NeedsMigration(ctx)
	if err != nil {
		return err
	}
	if !needed {
		return nil
	}

	legacy, _, err := s.r.LegacyList(ctx)
	if err != nil {
		return err
	}

	converted := make([]model.MinimalProject, 0, len(legacy))
	for i := range legacy {
		m := s.convert(&legacy[i])
		if m == nil {
			continue
		}
		converted = append(converted, *m)
	}

	if err := s.r.ReplaceAll(ctx, converted); err != nil {
		return fmt.Errorf("write migrated projects: %w", err)
	}

	if currentID, err := s.r.LegacyCurrentID(ctx); err == nil && currentID != "" {
		if serr := s.r.SetCurrentID(ctx, currentID); serr != nil {
			s.log.Sugar().Warnw("failed to carry over active project pointer", "err", serr)
		}
	}

	s.log.Sugar().Infow("migrated projects to v2 format", "migrated", len(converted), "skipped", len(legacy)-len(converted))
	return nil
}

func (s *migrationService) convert(l *model.LegacyProject) *model.MinimalProject {
	// Records without their embedded console/device are unrecoverable: the
	// v1 format carried them by value, so there is no key to re-resolve.
	if l.Console == nil || l.Device == nil {
		s.log.Sugar().Warnw("dropping legacy project without console/device", "id", l.ID, "name", l.Name)
		return nil
	}

	orientations := l.Orientations
	if orientations == nil {
		// Pre-orientation records keep their whole layout in top-level
		// fields; relocate it into the portrait slot.
		portrait := model.EmptyOrientationData()
		portrait.Controls = l.Controls
		portrait.Screens = l.Screens
		portrait.BackgroundImage = l.BackgroundImage
		if l.MenuInsets != nil {
			portrait.MenuInsets = *l.MenuInsets
		}
		if portrait.Controls == nil {
			portrait.Controls = []model.Control{}
		}
		if portrait.Screens == nil {
			portrait.Screens = []model.Screen{}
		}

		orientations = &model.OrientationSet{
			Portrait:  portrait,
			Landscape: model.EmptyOrientationData(),
		}
	}

	orientation := l.CurrentOrientation
	if !orientation.Valid() {
		orientation = model.OrientationPortrait
	}

	m := codec.ToMinimal(&model.Project{
		ID:                 l.ID,
		Name:               l.Name,
		Identifier:         l.Identifier,
		Console:            l.Console,
		Device:             l.Device,
		CurrentOrientation: orientation,
		Orientations:       orientations,
		OwnerEmail:         l.OwnerEmail,
		LastModified:       l.LastModified,
	})
	if m == nil {
		s.log.Sugar().Warnw("dropping legacy project that fails conversion", "id", l.ID)
		return nil
	}
	return m
}
