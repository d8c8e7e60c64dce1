package domain

import (
	"context"
	"time"
)

// StoredFile is the durable metadata record describing one uploaded asset.
// It is created before the backend upload starts, so a failed upload leaves
// a discoverable record (with an empty StorageKey) rather than a silent
// orphan object.
type StoredFile struct {
	ID         string            `bson:"_id" json:"id"`
	Title      string            `bson:"title" json:"title"`
	TitleAlt   string            `bson:"title_alt,omitempty" json:"title_alt,omitempty"`
	Type       string            `bson:"type" json:"type"` // lowercase extension: jpg, mp3, pdf
	Size       int64             `bson:"size" json:"size"` // bytes actually persisted (post-transform)
	Category   string            `bson:"category" json:"category"`
	StorageKey string            `bson:"storage_key,omitempty" json:"storage_key,omitempty"`
	CDNUrl     string            `bson:"cdn_url,omitempty" json:"cdn_url,omitempty"`
	DirectURL  string            `bson:"direct_url,omitempty" json:"direct_url,omitempty"`
	ETag       string            `bson:"etag,omitempty" json:"etag,omitempty"`
	Metadata   map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt  time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `bson:"updated_at" json:"updated_at"`
}

// Complete reports whether the backend acknowledged the object upload.
// Records with an empty StorageKey are "upload incomplete": the caller may
// retry the upload end-to-end or discard the record.
func (f *StoredFile) Complete() bool {
	return f.StorageKey != ""
}

// FileRepository is the metadata record store
type FileRepository interface {
	Create(ctx context.Context, file *StoredFile) error
	GetByID(ctx context.Context, id string) (*StoredFile, error)
	Update(ctx context.Context, file *StoredFile) error
	Delete(ctx context.Context, id string) error
}

// UploadResult is the backend's acknowledgment of a successful put
type UploadResult struct {
	Location string `json:"location"`
	Key      string `json:"key"`
	ETag     string `json:"etag"`
}

// StorageClient performs object operations against the storage backend.
// Implementations own retry/backoff; callers never retry on top of it.
type StorageClient interface {
	// PutObject uploads a buffer under key and returns the backend acknowledgment
	PutObject(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (*UploadResult, error)
	// DeleteObject removes the object at key. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, key string) error
	// SignedURL returns a time-limited URL for private access. Never used
	// for public asset delivery.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CDNResolver builds delivery URLs for stored objects and invalidates
// cached copies after mutation
type CDNResolver interface {
	// BuildURL returns the CDN delivery URL for key, or "" when no CDN
	// domain is configured.
	BuildURL(key string) string
	// BuildDirectURL returns the backend-native URL for key. Always derivable.
	BuildDirectURL(key string) string
	// Invalidate purges cached copies of the given paths. Best-effort.
	Invalidate(ctx context.Context, paths []string) (string, error)
}

// URLCache caches record-id to resolved-URL lookups for the redirect endpoint
type URLCache interface {
	GetResolvedURL(ctx context.Context, id string) (string, error)
	SetResolvedURL(ctx context.Context, id string, url string, ttl time.Duration) error
	EvictResolvedURL(ctx context.Context, id string) error
}
