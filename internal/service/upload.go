package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/mediadepot/api/internal/domain"
	"github.com/oklog/ulid/v2"
)

// UploadService orchestrates the ingestion pipeline:
// validate → create record → transform → generate key → upload → finalize.
// It never retries the backend itself; retry/backoff lives in the storage
// client.
type UploadService struct {
	files       domain.FileRepository
	storage     domain.StorageClient
	cdn         domain.CDNResolver
	transformer Transformer
	keyPrefix   string
}

// NewUploadService creates a new upload orchestrator
func NewUploadService(
	files domain.FileRepository,
	storage domain.StorageClient,
	cdn domain.CDNResolver,
	transformer Transformer,
	keyPrefix string,
) *UploadService {
	return &UploadService{
		files:       files,
		storage:     storage,
		cdn:         cdn,
		transformer: transformer,
		keyPrefix:   keyPrefix,
	}
}

// UploadInput is one in-memory upload request
type UploadInput struct {
	Buffer       []byte
	OriginalName string
	MimeType     string
	Category     string
	Metadata     map[string]string
	Options      *domain.UploadOptions
}

// UploadOutput pairs the finalized record with the raw backend
// acknowledgment, for callers that need the direct location.
type UploadOutput struct {
	File   *domain.StoredFile `json:"file"`
	Result *domain.UploadResult `json:"upload_result"`
}

// Store runs the full ingestion sequence for one buffer.
//
// A failure before the backend put leaves nothing or an incomplete record;
// a failure at the put leaves a record with an empty StorageKey that the
// caller may retry end-to-end (the key embeds the stable record id, so a
// retry is safe) or discard.
func (s *UploadService) Store(ctx context.Context, in UploadInput) (*UploadOutput, error) {
	policy := in.Options.Apply(domain.PolicyFor(in.Category))
	if err := domain.ValidateUpload(in.Buffer, in.OriginalName, in.MimeType, policy); err != nil {
		return nil, err
	}

	title, titleAlt := domain.SplitTitle(in.OriginalName)
	record := &domain.StoredFile{
		ID:       ulid.Make().String(),
		Title:    title,
		TitleAlt: titleAlt,
		Type:     domain.ResolveExtension(in.MimeType, in.OriginalName),
		Size:     int64(len(in.Buffer)),
		Category: in.Category,
		Metadata: make(map[string]string, len(in.Metadata)+1),
	}
	for k, v := range in.Metadata {
		record.Metadata[k] = v
	}

	// The record exists before any network call: an upload failure leaves
	// a discoverable "upload incomplete" record, never a silent orphan.
	if err := s.files.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("creating file record: %w", err)
	}

	buffer, mimeType := in.Buffer, in.MimeType
	optimized := false
	if policy.OptimizeImages && domain.IsTransformableType(record.Type) {
		res := s.transformer.Transform(ctx, buffer, mimeType, TransformOptions{
			MaxWidth:  policy.MaxWidth,
			MaxHeight: policy.MaxHeight,
			Quality:   policy.Quality,
		})
		if res.Applied {
			buffer, mimeType = res.Buffer, res.MimeType
			optimized = true
			record.Size = int64(len(buffer))
			if err := s.files.Update(ctx, record); err != nil {
				return nil, fmt.Errorf("persisting transformed size: %w", err)
			}
		}
	}
	record.Metadata["optimized"] = strconv.FormatBool(optimized)

	key := domain.GenerateKey(s.keyPrefix, in.Category, record.ID, in.OriginalName, time.Now().UTC())

	objectMeta := make(map[string]string, len(in.Metadata)+3)
	for k, v := range in.Metadata {
		objectMeta[k] = v
	}
	objectMeta["original-name"] = in.OriginalName
	objectMeta["category"] = in.Category
	objectMeta["optimized"] = strconv.FormatBool(optimized)

	result, err := s.storage.PutObject(ctx, key, buffer, mimeType, objectMeta)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", record.ID, err)
	}

	record.StorageKey = key
	record.ETag = result.ETag
	record.DirectURL = s.cdn.BuildDirectURL(key)
	if url := s.cdn.BuildURL(key); url != "" {
		record.CDNUrl = url
	}
	if err := s.files.Update(ctx, record); err != nil {
		// The object is durable but the record doesn't know. Flag the
		// orphan loudly for out-of-band reconciliation.
		log.Printf("ERROR: record %s lost storage key %s after a successful upload: %v", record.ID, key, err)
		return nil, fmt.Errorf("finalizing record %s: %w", record.ID, err)
	}

	return &UploadOutput{File: record, Result: result}, nil
}

// BatchItem is one file's outcome inside a batch upload
type BatchItem struct {
	OriginalName string        `json:"original_name"`
	Output       *UploadOutput `json:"output,omitempty"`
	Err          error         `json:"-"`
}

// StoreBatch processes several uploads sequentially and independently:
// one file's failure never aborts its siblings, partial failures are
// aggregated into the result list.
func (s *UploadService) StoreBatch(ctx context.Context, inputs []UploadInput) []BatchItem {
	items := make([]BatchItem, 0, len(inputs))
	for _, in := range inputs {
		out, err := s.Store(ctx, in)
		items = append(items, BatchItem{
			OriginalName: in.OriginalName,
			Output:       out,
			Err:          err,
		})
	}
	return items
}
