package service

import (
	"context"
	"log"
	"time"

	"github.com/mediadepot/api/internal/domain"
)

const (
	resolvedURLTTL = time.Hour
	signedURLTTL   = 15 * time.Minute
)

// ResolveService turns a record id into a delivery URL for client
// redirection: CDN when configured, direct backend URL otherwise, and a
// short-lived signed URL for private categories.
type ResolveService struct {
	files   domain.FileRepository
	storage domain.StorageClient
	cdn     domain.CDNResolver
	cache   domain.URLCache // optional
}

// NewResolveService creates a new URL resolution service
func NewResolveService(
	files domain.FileRepository,
	storage domain.StorageClient,
	cdn domain.CDNResolver,
	cache domain.URLCache,
) *ResolveService {
	return &ResolveService{
		files:   files,
		storage: storage,
		cdn:     cdn,
		cache:   cache,
	}
}

// Get returns the metadata record for id
func (s *ResolveService) Get(ctx context.Context, id string) (*domain.StoredFile, error) {
	return s.files.GetByID(ctx, id)
}

// ResolveURL returns the delivery URL for the record with the given id.
// Records without a backing object resolve to domain.ErrNotFound.
func (s *ResolveService) ResolveURL(ctx context.Context, id string) (string, error) {
	if s.cache != nil {
		url, err := s.cache.GetResolvedURL(ctx, id)
		if err != nil {
			// cache trouble never blocks resolution
			log.Printf("Warning: resolve %s: cache lookup failed: %v", id, err)
		} else if url != "" {
			return url, nil
		}
	}

	record, err := s.files.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !record.Complete() {
		// upload-incomplete record, nothing to serve
		return "", domain.ErrNotFound
	}

	if domain.PolicyFor(record.Category).Private {
		// signed URLs are short-lived, never cached
		return s.storage.SignedURL(ctx, record.StorageKey, signedURLTTL)
	}

	url := record.CDNUrl
	if url == "" {
		url = record.DirectURL
	}
	if url == "" {
		url = s.cdn.BuildDirectURL(record.StorageKey)
	}

	if s.cache != nil {
		if err := s.cache.SetResolvedURL(ctx, id, url, resolvedURLTTL); err != nil {
			log.Printf("Warning: resolve %s: cache store failed: %v", id, err)
		}
	}
	return url, nil
}
