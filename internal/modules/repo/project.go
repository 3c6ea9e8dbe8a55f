package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/skinforge/skinforge/internal/modules/model"
)

// Durable small-object storage keys. The v2 keys hold the minimal format;
// the unsuffixed keys are the legacy v1 store, kept as an unconditional
// backup after migration.
const (
	KeyProjects       = "projects-v2"
	KeyCurrentProject = "current-project-v2"

	KeyLegacyProjects       = "projects"
	KeyLegacyCurrentProject = "current-project"
)

// ProjectRepo is the durable collection of minimal project records plus the
// active-project pointer. Write ordering is call order; the last writer for
// a given id wins.
type ProjectRepo interface {
	List(ctx context.Context) ([]model.MinimalProject, error)
	HasCollection(ctx context.Context) (bool, error)
	ReplaceAll(ctx context.Context, projects []model.MinimalProject) error
	Upsert(ctx context.Context, p model.MinimalProject) error
	Delete(ctx context.Context, id string) (bool, error)

	CurrentID(ctx context.Context) (string, error)
	SetCurrentID(ctx context.Context, id string) error
	ClearCurrentID(ctx context.Context) error

	LegacyList(ctx context.Context) ([]model.LegacyProject, bool, error)
	LegacyCurrentID(ctx context.Context) (string, error)
}

type projectRepo struct {
	rdb *redis.Client
}

func NewProjectRepo(rdb *redis.Client) ProjectRepo {
	return &projectRepo{rdb: rdb}
}

func (r *projectRepo) List(ctx context.Context) ([]model.MinimalProject, error) {
	raw, err := r.rdb.Get(ctx, KeyProjects).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.MinimalProject{}, nil
		}
		return nil, err
	}

	var projects []model.MinimalProject
	if err := sonic.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyProjects, err)
	}
	return projects, nil
}

func (r *projectRepo) HasCollection(ctx context.Context) (bool, error) {
	n, err := r.rdb.Exists(ctx, KeyProjects).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *projectRepo) ReplaceAll(ctx context.Context, projects []model.MinimalProject) error {
	if projects == nil {
		projects = []model.MinimalProject{}
	}
	raw, err := sonic.Marshal(projects)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyProjects, err)
	}
	return r.rdb.Set(ctx, KeyProjects, raw, 0).Err()
}

func (r *projectRepo) Upsert(ctx context.Context, p model.MinimalProject) error {
	projects, err := r.List(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range projects {
		if projects[i].ID == p.ID {
			projects[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		projects = append(projects, p)
	}

	return r.ReplaceAll(ctx, projects)
}

func (r *projectRepo) Delete(ctx context.Context, id string) (bool, error) {
	projects, err := r.List(ctx)
	if err != nil {
		return false, err
	}

	kept := projects[:0]
	removed := false
	for _, p := range projects {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return false, nil
	}

	return true, r.ReplaceAll(ctx, kept)
}

func (r *projectRepo) CurrentID(ctx context.Context) (string, error) {
	id, err := r.rdb.Get(ctx, KeyCurrentProject).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

func (r *projectRepo) SetCurrentID(ctx context.Context, id string) error {
	return r.rdb.Set(ctx, KeyCurrentProject, id, 0).Err()
}

func (r *projectRepo) ClearCurrentID(ctx context.Context) error {
	return r.rdb.Del(ctx, KeyCurrentProject).Err()
}

// LegacyList returns the v1 record collection and whether the key exists at
// all. The legacy store is read-only from here on; migration never deletes it.
func (r *projectRepo) LegacyList(ctx context.Context) ([]model.LegacyProject, bool, error) {
	raw, err := r.rdb.Get(ctx, KeyLegacyProjects).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var projects []model.LegacyProject
	if err := sonic.Unmarshal(raw, &projects); err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", KeyLegacyProjects, err)
	}
	return projects, true, nil
}

func (r *projectRepo) LegacyCurrentID(ctx context.Context) (string, error) {
	id, err := r.rdb.Get(ctx, KeyLegacyCurrentProject).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}
