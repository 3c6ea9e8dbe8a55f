package bootstrap

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/skinforge/skinforge/internal/config"
	"github.com/skinforge/skinforge/internal/infra/blob"
	"github.com/skinforge/skinforge/internal/infra/cache"
	"github.com/skinforge/skinforge/internal/infra/db"
	"github.com/skinforge/skinforge/internal/infra/logger"
	mq "github.com/skinforge/skinforge/internal/infra/queue"
	"github.com/skinforge/skinforge/internal/modules/handler"
	"github.com/skinforge/skinforge/internal/modules/model"
	"github.com/skinforge/skinforge/internal/modules/reference"
	"github.com/skinforge/skinforge/internal/modules/repo"
	"github.com/skinforge/skinforge/internal/modules/service"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB holds the stored-image metadata rows
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			_ = d.AutoMigrate(&model.StoredImage{})
		}
		return d, nil
	})

	// Redis holds the durable project records
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.New(cfg)
	})

	// RabbitMQ is optional: without a URL the publisher stays nil and
	// lifecycle events are skipped.
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.RabbitMQ.URL == "" {
			return nil, nil
		}
		return mq.Dial(cfg)
	})
	do.Provide(inj, func(i *do.Injector) (*mq.Publisher, error) {
		conn := do.MustInvoke[*amqp.Connection](i)
		if conn == nil {
			return nil, nil
		}
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		return mq.NewPublisher(conn, log, cfg)
	})

	// S3
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return blob.NewS3(context.Background(), cfg)
	})
	// presign expire duration
	do.Provide(inj, func(i *do.Injector) (func() time.Duration, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return func() time.Duration {
			if cfg.S3.PresignExpireSec <= 0 {
				return 15 * time.Minute
			}
			return time.Duration(cfg.S3.PresignExpireSec) * time.Second
		}, nil
	})

	// reference tables
	do.Provide(inj, func(i *do.Injector) (*reference.Tables, error) {
		return reference.Load()
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*redis.Client](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ImageRepo, error) {
		return repo.NewImageRepo(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*blob.S3Deps](i),
			do.MustInvoke[func() time.Duration](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.MigrationService, error) {
		return service.NewMigrationService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ProjectService, error) {
		return service.NewProjectService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.ImageRepo](i),
			do.MustInvoke[*reference.Tables](i),
			do.MustInvoke[*mq.Publisher](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*service.AutosaveCoordinator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		svc := do.MustInvoke[service.ProjectService](i)
		log := do.MustInvoke[*zap.Logger](i)
		return service.NewAutosaveCoordinator(
			time.Duration(cfg.Autosave.DelayMs)*time.Millisecond,
			svc.SaveProjectWithOrientation,
			log,
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.ProjectHandler, error) {
		return handler.NewProjectHandler(
			do.MustInvoke[service.ProjectService](i),
			do.MustInvoke[*reference.Tables](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ImageHandler, error) {
		return handler.NewImageHandler(do.MustInvoke[service.ProjectService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.AutosaveHandler, error) {
		return handler.NewAutosaveHandler(do.MustInvoke[*service.AutosaveCoordinator](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ReferenceHandler, error) {
		return handler.NewReferenceHandler(do.MustInvoke[*reference.Tables](i)), nil
	})
	return inj
}
