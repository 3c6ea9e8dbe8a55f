package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/skinforge/skinforge/internal/infra/blob"
	"github.com/skinforge/skinforge/internal/modules/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// presignSlack is how close to expiry an issued display URL may get before a
// read reissues it.
const presignSlack = time.Minute

type StoreImageInput struct {
	OwnerKey string
	Kind     model.ImageKind
	SubKey   string
	FileName string
	Data     []byte
}

// BlobStore is the subset of the S3 bundle the image repo uses; satisfied by
// blob.S3Deps.
type BlobStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (*blob.UploadedMeta, error)
	PresignGet(ctx context.Context, key string, expire time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// ImageRepo is the blob store adapter: bytes in S3, composite-key metadata in
// Postgres, presigned GET URLs as the display handles.
type ImageRepo interface {
	Store(ctx context.Context, in StoreImageInput) (*model.StoredImage, error)
	Get(ctx context.Context, ownerKey string, kind model.ImageKind, subKey string) (*model.StoredImage, error)
	ListByOwnerPrefix(ctx context.Context, ownerPrefix string) ([]model.StoredImage, error)
	DeleteAllForOwner(ctx context.Context, ownerPrefix string) (int, error)
	EvictOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

type imageRepo struct {
	db         *gorm.DB
	s3         BlobStore
	presignTTL func() time.Duration
	log        *zap.Logger
}

func NewImageRepo(db *gorm.DB, s3 BlobStore, presignTTL func() time.Duration, log *zap.Logger) ImageRepo {
	return &imageRepo{db: db, s3: s3, presignTTL: presignTTL, log: log}
}

// Store commits bytes and metadata together: if the metadata row cannot be
// written after the upload, the uploaded object is removed again so the
// caller can assume nothing was written.
func (r *imageRepo) Store(ctx context.Context, in StoreImageInput) (*model.StoredImage, error) {
	if in.OwnerKey == "" {
		return nil, errors.New("owner key is empty")
	}
	if len(in.Data) == 0 {
		return nil, errors.New("image payload is empty")
	}
	if in.Kind == model.ImageKindThumbstick && in.SubKey == "" {
		return nil, errors.New("thumbstick images require a sub key")
	}

	mime := mimetype.Detect(in.Data)

	now := time.Now().UTC()
	key := fmt.Sprintf("images/%s/%s/%d%s", in.OwnerKey, in.Kind, now.UnixNano(), mime.Extension())
	if in.SubKey != "" {
		key = fmt.Sprintf("images/%s/%s/%s/%d%s", in.OwnerKey, in.Kind, in.SubKey, now.UnixNano(), mime.Extension())
	}

	umeta, err := r.s3.UploadBytes(ctx, key, in.Data, mime.String(), map[string]string{
		"name": in.FileName,
	})
	if err != nil {
		return nil, fmt.Errorf("upload image bytes: %w", err)
	}

	ttl := r.presignTTL()
	url, err := r.s3.PresignGet(ctx, key, ttl)
	if err != nil {
		r.compensateUpload(ctx, key)
		return nil, fmt.Errorf("issue display url: %w", err)
	}

	img := &model.StoredImage{
		OwnerKey:     in.OwnerKey,
		Kind:         in.Kind,
		SubKey:       in.SubKey,
		FileName:     in.FileName,
		Bucket:       umeta.Bucket,
		S3Key:        key,
		MIME:         umeta.MIME,
		SizeB:        umeta.SizeB,
		Meta:         datatypes.JSONMap{"etag": umeta.ETag},
		URL:          url,
		URLExpiresAt: now.Add(ttl),
		CreatedAt:    now,
	}

	if err := r.db.WithContext(ctx).Create(img).Error; err != nil {
		r.compensateUpload(ctx, key)
		return nil, fmt.Errorf("create image record: %w", err)
	}

	return img, nil
}

func (r *imageRepo) compensateUpload(ctx context.Context, key string) {
	if derr := r.s3.DeleteObject(ctx, key); derr != nil {
		r.log.Sugar().Warnw("failed to remove orphaned image object", "key", key, "err", derr)
	}
}

// Get returns the most recently written entry for the composite key, or nil
// when none exists. A stale display URL is reissued before the row is
// returned, since presigned handles do not survive long-lived sessions.
func (r *imageRepo) Get(ctx context.Context, ownerKey string, kind model.ImageKind, subKey string) (*model.StoredImage, error) {
	query := r.db.WithContext(ctx).
		Where("owner_key = ? AND kind = ?", ownerKey, kind)
	if kind == model.ImageKindThumbstick {
		query = query.Where("sub_key = ?", subKey)
	}

	var img model.StoredImage
	err := query.Order("created_at DESC").First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if time.Until(img.URLExpiresAt) < presignSlack {
		ttl := r.presignTTL()
		url, perr := r.s3.PresignGet(ctx, img.S3Key, ttl)
		if perr != nil {
			return nil, fmt.Errorf("reissue display url: %w", perr)
		}
		img.URL = url
		img.URLExpiresAt = time.Now().UTC().Add(ttl)
		if uerr := r.db.WithContext(ctx).Model(&model.StoredImage{}).
			Where("id = ?", img.ID).
			Updates(map[string]any{"url": img.URL, "url_expires_at": img.URLExpiresAt}).Error; uerr != nil {
			r.log.Sugar().Warnw("failed to persist reissued url", "id", img.ID, "err", uerr)
		}
	}

	return &img, nil
}

func (r *imageRepo) ListByOwnerPrefix(ctx context.Context, ownerPrefix string) ([]model.StoredImage, error) {
	var images []model.StoredImage
	err := r.db.WithContext(ctx).
		Where("owner_key LIKE ?", ownerPrefix+"%").
		Order("created_at DESC").
		Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

// DeleteAllForOwner removes every entry whose owner key starts with the
// given prefix, releasing each display handle before the row goes. Returns
// the number of rows removed.
func (r *imageRepo) DeleteAllForOwner(ctx context.Context, ownerPrefix string) (int, error) {
	images, err := r.ListByOwnerPrefix(ctx, ownerPrefix)
	if err != nil {
		return 0, err
	}
	return r.deleteBatch(ctx, images)
}

// EvictOlderThan is the age-based hygiene sweep.
func (r *imageRepo) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	var images []model.StoredImage
	if err := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Find(&images).Error; err != nil {
		return 0, err
	}
	return r.deleteBatch(ctx, images)
}

func (r *imageRepo) deleteBatch(ctx context.Context, images []model.StoredImage) (int, error) {
	deleted := 0
	var firstErr error
	for _, img := range images {
		if err := r.s3.DeleteObject(ctx, img.S3Key); err != nil {
			r.log.Sugar().Warnw("failed to delete image object", "key", img.S3Key, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := r.db.WithContext(ctx).Delete(&model.StoredImage{}, "id = ?", img.ID).Error; err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted++
	}
	return deleted, firstErr
}
