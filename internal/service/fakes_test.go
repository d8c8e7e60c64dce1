package service

import (
	"context"
	"time"

	"github.com/mediadepot/api/internal/domain"
)

type fakeFileRepo struct {
	records     map[string]*domain.StoredFile
	createErr   error
	updateErr   error
	deleteErr   error
	updateCalls int
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{records: make(map[string]*domain.StoredFile)}
}

func (r *fakeFileRepo) Create(ctx context.Context, file *domain.StoredFile) error {
	if r.createErr != nil {
		return r.createErr
	}
	file.CreatedAt = time.Now()
	file.UpdatedAt = time.Now()
	r.records[file.ID] = file
	return nil
}

func (r *fakeFileRepo) GetByID(ctx context.Context, id string) (*domain.StoredFile, error) {
	file, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return file, nil
}

func (r *fakeFileRepo) Update(ctx context.Context, file *domain.StoredFile) error {
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.records[file.ID]; !ok {
		return domain.ErrNotFound
	}
	r.records[file.ID] = file
	return nil
}

func (r *fakeFileRepo) Delete(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *fakeFileRepo) only() *domain.StoredFile {
	for _, f := range r.records {
		return f
	}
	return nil
}

type fakeStorage struct {
	putErr          error
	putCalls        int
	lastKey         string
	lastBody        []byte
	lastContentType string
	lastMetadata    map[string]string

	deleteErr   error
	deleteCalls int
	deletedKeys []string

	signedErr error
}

func (s *fakeStorage) PutObject(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (*domain.UploadResult, error) {
	s.putCalls++
	s.lastKey = key
	s.lastBody = body
	s.lastContentType = contentType
	s.lastMetadata = metadata
	if s.putErr != nil {
		return nil, s.putErr
	}
	return &domain.UploadResult{
		Location: "http://backend/assets/" + key,
		Key:      key,
		ETag:     "etag-1",
	}, nil
}

func (s *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	s.deleteCalls++
	s.deletedKeys = append(s.deletedKeys, key)
	return s.deleteErr
}

func (s *fakeStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.signedErr != nil {
		return "", s.signedErr
	}
	return "https://signed.example.com/" + key + "?sig=abc", nil
}

type fakeCDN struct {
	domain        string
	invalidateErr error
	invalidated   [][]string
}

func (c *fakeCDN) BuildURL(key string) string {
	if c.domain == "" {
		return ""
	}
	return "https://" + c.domain + "/" + key
}

func (c *fakeCDN) BuildDirectURL(key string) string {
	return "http://backend/assets/" + key
}

func (c *fakeCDN) Invalidate(ctx context.Context, paths []string) (string, error) {
	c.invalidated = append(c.invalidated, paths)
	if c.invalidateErr != nil {
		return "", c.invalidateErr
	}
	return "inv-1", nil
}

type fakeCache struct {
	entries   map[string]string
	getErr    error
	setErr    error
	evictions []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) GetResolvedURL(ctx context.Context, id string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.entries[id], nil
}

func (c *fakeCache) SetResolvedURL(ctx context.Context, id string, url string, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[id] = url
	return nil
}

func (c *fakeCache) EvictResolvedURL(ctx context.Context, id string) error {
	c.evictions = append(c.evictions, id)
	delete(c.entries, id)
	return nil
}

// scriptedTransformer returns a canned result, letting orchestrator tests
// control whether the transform applied.
type scriptedTransformer struct {
	result TransformResult
	calls  int
}

func (t *scriptedTransformer) Transform(ctx context.Context, buffer []byte, mimeType string, opts TransformOptions) TransformResult {
	t.calls++
	if t.result.Buffer == nil {
		return TransformResult{
			Buffer:   buffer,
			MimeType: mimeType,
			BytesIn:  len(buffer),
			BytesOut: len(buffer),
		}
	}
	return t.result
}
