package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/skinforge/skinforge/internal/bootstrap"
	"github.com/skinforge/skinforge/internal/config"
	"github.com/skinforge/skinforge/internal/infra/cache"
	dbpkg "github.com/skinforge/skinforge/internal/infra/db"
	"github.com/skinforge/skinforge/internal/modules/handler"
	"github.com/skinforge/skinforge/internal/modules/repo"
	"github.com/skinforge/skinforge/internal/modules/service"
	"github.com/skinforge/skinforge/internal/router"
	"github.com/skinforge/skinforge/internal/telemetry"
)

func main() {
	// build dependency injection container
	inj := bootstrap.BuildContainer()

	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)
	db := do.MustInvoke[*gorm.DB](inj)
	rdb := do.MustInvoke[*redis.Client](inj)

	// Setup OpenTelemetry tracing (using configuration system)
	tp, err := telemetry.SetupTracing(cfg)
	if err != nil {
		log.Sugar().Warnw("failed to setup tracing, continuing without tracing", "err", err)
	} else if tp != nil {
		log.Sugar().Infow("OpenTelemetry tracing enabled", "endpoint", cfg.Telemetry.OtlpEndpoint)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(ctx); err != nil {
				log.Sugar().Errorw("failed to shutdown tracer", "err", err)
			}
		}()

		if err := dbpkg.RegisterOpenTelemetryPlugin(db); err != nil {
			log.Sugar().Warnw("failed to register GORM OpenTelemetry plugin, continuing without database tracing", "err", err)
		}
		if err := cache.RegisterOpenTelemetryPlugin(rdb); err != nil {
			log.Sugar().Warnw("failed to register Redis OpenTelemetry plugin, continuing without Redis tracing", "err", err)
		}
	}

	// One-shot format migration gates startup: no request may observe a
	// half-migrated store.
	migration := do.MustInvoke[service.MigrationService](inj)
	if err := migration.Run(context.Background()); err != nil {
		log.Sugar().Fatalw("format migration failed", "err", err)
	}

	// periodic eviction of aged stored images
	images := do.MustInvoke[repo.ImageRepo](inj)
	stopEviction := startEvictionSweeper(cfg, images, log)
	defer stopEviction()

	autosave := do.MustInvoke[*service.AutosaveCoordinator](inj)

	// init gin
	gin.SetMode(cfg.App.Env)

	engine := router.NewRouter(router.RouterDeps{
		Config:           cfg,
		Log:              log,
		ProjectHandler:   do.MustInvoke[*handler.ProjectHandler](inj),
		ImageHandler:     do.MustInvoke[*handler.ImageHandler](inj),
		AutosaveHandler:  do.MustInvoke[*handler.AutosaveHandler](inj),
		ReferenceHandler: do.MustInvoke[*handler.ReferenceHandler](inj),
	})

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	go func() {
		log.Sugar().Infow("starting http server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Sugar().Fatalw("listen error", "err", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Sugar().Errorw("server shutdown", "err", err)
	}

	// flush any pending autosave before the process exits
	autosave.Close()
	log.Sugar().Info("server exited")
}

// startEvictionSweeper removes stored images older than the retention window
// once a day. Returns a stop function.
func startEvictionSweeper(cfg *config.Config, images repo.ImageRepo, log *zap.Logger) func() {
	if cfg.Retention.ImageMaxAgeDays <= 0 {
		return func() {}
	}
	maxAge := time.Duration(cfg.Retention.ImageMaxAgeDays) * 24 * time.Hour

	ticker := time.NewTicker(24 * time.Hour)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				n, err := images.EvictOlderThan(context.Background(), maxAge)
				if err != nil {
					log.Sugar().Warnw("image eviction sweep incomplete", "evicted", n, "err", err)
					continue
				}
				if n > 0 {
					log.Sugar().Infow("evicted aged stored images", "evicted", n)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
