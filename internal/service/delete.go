package service

import (
	"context"
	"fmt"
	"log"

	"github.com/mediadepot/api/internal/domain"
)

// DeleteService orchestrates file removal: look up the record, best-effort
// delete the backing object and invalidate caches, then delete the record.
// The record removal always completes even when the backend is flaky: a
// leaked object (caught by out-of-band reconciliation) beats a record the
// owning entity can never erase.
type DeleteService struct {
	files   domain.FileRepository
	storage domain.StorageClient
	cdn     domain.CDNResolver
	cache   domain.URLCache // optional
}

// NewDeleteService creates a new deletion orchestrator
func NewDeleteService(
	files domain.FileRepository,
	storage domain.StorageClient,
	cdn domain.CDNResolver,
	cache domain.URLCache,
) *DeleteService {
	return &DeleteService{
		files:   files,
		storage: storage,
		cdn:     cdn,
		cache:   cache,
	}
}

// cleanupStep is one independently fallible best-effort action
type cleanupStep struct {
	name string
	fn   func(context.Context) error
}

// Remove deletes the record with the given id. Fails fast with
// domain.ErrNotFound when no record exists.
func (s *DeleteService) Remove(ctx context.Context, id string) error {
	record, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if record.Complete() {
		steps := []cleanupStep{
			{"delete object", func(ctx context.Context) error {
				return s.storage.DeleteObject(ctx, record.StorageKey)
			}},
			{"invalidate cdn", func(ctx context.Context) error {
				_, err := s.cdn.Invalidate(ctx, []string{"/" + record.StorageKey})
				return err
			}},
		}
		if s.cache != nil {
			steps = append(steps, cleanupStep{"evict url cache", func(ctx context.Context) error {
				return s.cache.EvictResolvedURL(ctx, id)
			}})
		}

		for _, step := range steps {
			if err := step.fn(ctx); err != nil {
				log.Printf("Warning: delete %s: %s failed: %v", id, step.name, err)
			}
		}
	}

	if err := s.files.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	return nil
}
