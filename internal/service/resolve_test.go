package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mediadepot/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURLCacheMiss(t *testing.T) {
	files := newFakeFileRepo()
	cache := newFakeCache()
	record := seedRecord(files, "id1", "uploads/album/1_id1_cover.jpg")
	record.CDNUrl = "https://cdn.example.com/uploads/album/1_id1_cover.jpg"

	svc := NewResolveService(files, &fakeStorage{}, &fakeCDN{domain: "cdn.example.com"}, cache)
	url, err := svc.ResolveURL(context.Background(), "id1")

	require.NoError(t, err)
	assert.Equal(t, record.CDNUrl, url)
	assert.Equal(t, record.CDNUrl, cache.entries["id1"], "resolution must populate the cache")
}

func TestResolveURLCacheHitSkipsRepository(t *testing.T) {
	files := newFakeFileRepo()
	cache := newFakeCache()
	cache.entries["id1"] = "https://cdn.example.com/cached"

	svc := NewResolveService(files, &fakeStorage{}, &fakeCDN{}, cache)
	url, err := svc.ResolveURL(context.Background(), "id1")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cached", url)
}

func TestResolveURLFallsBackToDirectURL(t *testing.T) {
	files := newFakeFileRepo()
	seedRecord(files, "id1", "uploads/album/1_id1_cover.jpg")

	svc := NewResolveService(files, &fakeStorage{}, &fakeCDN{}, nil)
	url, err := svc.ResolveURL(context.Background(), "id1")

	require.NoError(t, err)
	assert.Equal(t, "http://backend/assets/uploads/album/1_id1_cover.jpg", url)
}

func TestResolveURLPrivateCategorySignsAndSkipsCache(t *testing.T) {
	files := newFakeFileRepo()
	cache := newFakeCache()
	record := seedRecord(files, "id1", "uploads/document/1_id1_contract.pdf")
	record.Category = domain.CategoryDocument

	svc := NewResolveService(files, &fakeStorage{}, &fakeCDN{domain: "cdn.example.com"}, cache)
	url, err := svc.ResolveURL(context.Background(), "id1")

	require.NoError(t, err)
	assert.Contains(t, url, "sig=")
	assert.Empty(t, cache.entries, "signed URLs are short-lived and never cached")
}

func TestResolveURLIncompleteRecord(t *testing.T) {
	files := newFakeFileRepo()
	seedRecord(files, "id1", "")

	svc := NewResolveService(files, &fakeStorage{}, &fakeCDN{}, nil)
	_, err := svc.ResolveURL(context.Background(), "id1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveURLMissingRecord(t *testing.T) {
	svc := NewResolveService(newFakeFileRepo(), &fakeStorage{}, &fakeCDN{}, nil)
	_, err := svc.ResolveURL(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveURLToleratesCacheErrors(t *testing.T) {
	files := newFakeFileRepo()
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	record := seedRecord(files, "id1", "uploads/album/1_id1_cover.jpg")
	record.CDNUrl = "https://cdn.example.com/uploads/album/1_id1_cover.jpg"

	svc := NewResolveService(files, &fakeStorage{}, &fakeCDN{domain: "cdn.example.com"}, cache)
	url, err := svc.ResolveURL(context.Background(), "id1")

	require.NoError(t, err)
	assert.Equal(t, record.CDNUrl, url)
}
