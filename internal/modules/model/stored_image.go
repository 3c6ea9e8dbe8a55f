package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ImageKind string

const (
	ImageKindBackground ImageKind = "background"
	ImageKindThumbstick ImageKind = "thumbstick"
)

// StoredImage is the blob-store metadata row. Bytes live in S3 under S3Key;
// the row carries the composite identity (owner key + kind + optional
// per-control sub key + created_at) and the currently issued display URL.
type StoredImage struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerKey string    `gorm:"type:text;not null;index" json:"owner_key"`
	Kind     ImageKind `gorm:"type:text;not null" json:"kind"`
	SubKey   string    `gorm:"type:text" json:"sub_key,omitempty"`

	FileName string            `gorm:"type:text;not null" json:"file_name"`
	Bucket   string            `gorm:"type:text;not null" json:"-"`
	S3Key    string            `gorm:"column:s3_key;type:text;not null" json:"-"`
	MIME     string            `gorm:"column:mime;type:text;not null" json:"mime"`
	SizeB    int64             `gorm:"column:size_bigint;type:bigint;not null" json:"size"`
	Meta     datatypes.JSONMap `gorm:"type:jsonb" json:"meta,omitempty"`

	// URL is the issued presigned display handle; it is reissued on read once
	// URLExpiresAt is close, and released by deleting the row.
	URL          string    `gorm:"type:text" json:"url"`
	URLExpiresAt time.Time `gorm:"column:url_expires_at" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StoredImage) TableName() string { return "stored_images" }
