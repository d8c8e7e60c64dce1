package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mediadepot/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploadService(files *fakeFileRepo, storage *fakeStorage, cdn *fakeCDN, tr Transformer) *UploadService {
	if tr == nil {
		tr = &scriptedTransformer{}
	}
	return NewUploadService(files, storage, cdn, tr, "uploads/")
}

func TestStoreAlbumCoverScenario(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{}
	cdn := &fakeCDN{domain: "cdn.example.com"}
	svc := newUploadService(files, storage, cdn, NewImageTransformer())

	buffer := bytes.Repeat([]byte{0xAB}, 2048) // not decodable: transform falls open

	out, err := svc.Store(context.Background(), UploadInput{
		Buffer:       buffer,
		OriginalName: "CoverEnglishTitleCoverEng.jpg",
		MimeType:     "image/jpeg",
		Category:     domain.CategoryAlbum,
	})
	require.NoError(t, err)

	file := out.File
	assert.Equal(t, "Cover", file.Title)
	assert.Equal(t, "CoverEng", file.TitleAlt)
	assert.Equal(t, "jpg", file.Type)
	assert.Equal(t, int64(2048), file.Size)
	assert.NotEmpty(t, file.ID)

	require.True(t, strings.HasPrefix(file.StorageKey, "uploads/album/"), "key %q must carry the category prefix", file.StorageKey)
	assert.Contains(t, file.StorageKey, file.ID, "key must embed the record id")
	assert.True(t, strings.HasSuffix(file.StorageKey, ".jpg"))

	assert.Equal(t, "https://cdn.example.com/"+file.StorageKey, file.CDNUrl)
	assert.NotEmpty(t, file.DirectURL)
	assert.Equal(t, "etag-1", file.ETag)
	assert.Equal(t, "false", file.Metadata["optimized"])

	// backend saw the original bytes and the merged metadata map
	assert.Equal(t, buffer, storage.lastBody)
	assert.Equal(t, "CoverEnglishTitleCoverEng.jpg", storage.lastMetadata["original-name"])
	assert.Equal(t, "album", storage.lastMetadata["category"])
	assert.Equal(t, "false", storage.lastMetadata["optimized"])

	// the persisted record matches the returned one
	stored, err := files.GetByID(context.Background(), file.ID)
	require.NoError(t, err)
	assert.True(t, stored.Complete())
}

func TestStoreValidationFailureTouchesNothing(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{}
	svc := newUploadService(files, storage, &fakeCDN{}, nil)

	_, err := svc.Store(context.Background(), UploadInput{
		Buffer:       []byte("pretend exe"),
		OriginalName: "tool.exe",
		MimeType:     "application/octet-stream",
		Category:     domain.CategoryAlbum,
	})

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Zero(t, storage.putCalls, "validation failures must not reach the backend")
	assert.Empty(t, files.records, "validation failures must not create a record")
}

func TestStoreOversizeRejectedBeforeBackend(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{}
	svc := newUploadService(files, storage, &fakeCDN{}, nil)

	policy := domain.PolicyFor(domain.CategoryAvatar)
	_, err := svc.Store(context.Background(), UploadInput{
		Buffer:       bytes.Repeat([]byte{1}, int(policy.MaxSizeBytes)+1),
		OriginalName: "big.png",
		MimeType:     "image/png",
		Category:     domain.CategoryAvatar,
	})

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Zero(t, storage.putCalls)
}

func TestStoreTransformFailOpen(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{}
	svc := newUploadService(files, storage, &fakeCDN{}, NewImageTransformer())

	garbage := bytes.Repeat([]byte{0xDE, 0xAD}, 512) // image/jpeg mime but undecodable

	out, err := svc.Store(context.Background(), UploadInput{
		Buffer:       garbage,
		OriginalName: "broken.jpg",
		MimeType:     "image/jpeg",
		Category:     domain.CategoryAlbum,
	})
	require.NoError(t, err, "a transform failure must never block the upload")

	assert.Equal(t, int64(len(garbage)), out.File.Size, "size must stay the raw buffer length")
	assert.Equal(t, "false", out.File.Metadata["optimized"])
	assert.Equal(t, garbage, storage.lastBody, "the original buffer must be uploaded")
}

func TestStoreAppliesTransform(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{}
	transformed := []byte("smaller")
	tr := &scriptedTransformer{result: TransformResult{
		Buffer:   transformed,
		MimeType: "image/jpeg",
		BytesIn:  2048,
		BytesOut: len("smaller"),
		Applied:  true,
	}}
	svc := newUploadService(files, storage, &fakeCDN{}, tr)

	out, err := svc.Store(context.Background(), UploadInput{
		Buffer:       bytes.Repeat([]byte{1}, 2048),
		OriginalName: "photo.jpg",
		MimeType:     "image/jpeg",
		Category:     domain.CategoryAlbum,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, int64(len(transformed)), out.File.Size, "size must reflect persisted bytes, not received bytes")
	assert.Equal(t, transformed, storage.lastBody)
	assert.Equal(t, "true", out.File.Metadata["optimized"])
	assert.Equal(t, "true", storage.lastMetadata["optimized"])
	assert.GreaterOrEqual(t, files.updateCalls, 2, "transformed size and final key are persisted separately")
}

func TestStoreSkipsTransformForNonImages(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{}
	tr := &scriptedTransformer{}
	svc := newUploadService(files, storage, &fakeCDN{}, tr)

	_, err := svc.Store(context.Background(), UploadInput{
		Buffer:       []byte("ID3 tag and frames"),
		OriginalName: "track.mp3",
		MimeType:     "audio/mpeg",
		Category:     domain.CategoryAudio,
	})
	require.NoError(t, err)
	assert.Zero(t, tr.calls, "audio must not enter the transform stage")
}

func TestStoreUploadFailureLeavesIncompleteRecord(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{putErr: &domain.StorageError{
		Kind: domain.KindBackendUnavailable,
		Op:   "PutObject",
	}}
	svc := newUploadService(files, storage, &fakeCDN{}, nil)

	_, err := svc.Store(context.Background(), UploadInput{
		Buffer:       []byte("jpeg bytes"),
		OriginalName: "cover.jpg",
		MimeType:     "image/jpeg",
		Category:     domain.CategoryAlbum,
	})

	require.Error(t, err)
	require.NotNil(t, domain.AsStorage(err), "the backend error must stay unwrappable")

	record := files.only()
	require.NotNil(t, record, "the record must survive the failed upload")
	assert.False(t, record.Complete(), "the record must be marked upload-incomplete via its empty key")
	assert.Empty(t, record.CDNUrl)
}

func TestStoreWithoutCDNDomain(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{}
	svc := newUploadService(files, storage, &fakeCDN{domain: ""}, nil)

	out, err := svc.Store(context.Background(), UploadInput{
		Buffer:       []byte("jpeg bytes"),
		OriginalName: "cover.jpg",
		MimeType:     "image/jpeg",
		Category:     domain.CategoryAlbum,
	})
	require.NoError(t, err)
	assert.Empty(t, out.File.CDNUrl)
	assert.NotEmpty(t, out.File.DirectURL, "the direct URL is always derivable")
}

func TestStoreOptionOverrides(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{}
	svc := newUploadService(files, storage, &fakeCDN{}, nil)

	maxSize := int64(4)
	_, err := svc.Store(context.Background(), UploadInput{
		Buffer:       []byte("12345"),
		OriginalName: "cover.jpg",
		MimeType:     "image/jpeg",
		Category:     domain.CategoryAlbum,
		Options:      &domain.UploadOptions{MaxSize: &maxSize},
	})

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err), "per-request max size must override the category ceiling")
}

func TestStoreBatchAggregatesPartialFailures(t *testing.T) {
	files := newFakeFileRepo()
	storage := &fakeStorage{}
	svc := newUploadService(files, storage, &fakeCDN{}, nil)

	items := svc.StoreBatch(context.Background(), []UploadInput{
		{
			Buffer:       []byte("nope"),
			OriginalName: "virus.exe",
			MimeType:     "application/octet-stream",
			Category:     domain.CategoryAlbum,
		},
		{
			Buffer:       []byte("jpeg bytes"),
			OriginalName: "cover.jpg",
			MimeType:     "image/jpeg",
			Category:     domain.CategoryAlbum,
		},
	})

	require.Len(t, items, 2)
	assert.Error(t, items[0].Err, "first file is rejected")
	require.NoError(t, items[1].Err, "a sibling's failure must not abort the rest")
	assert.NotNil(t, items[1].Output)
	assert.Equal(t, 1, storage.putCalls)
}
