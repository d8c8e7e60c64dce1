package handler

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mediadepot/api/internal/domain"
	"github.com/mediadepot/api/internal/service"
)

// The form field carrying file content; everything else in the form is
// treated as an option override and must come from this closed set.
const fileField = "file"

var optionFields = map[string]bool{
	"max_size":           true,
	"allowed_extensions": true,
	"optimize":           true,
	"max_width":          true,
	"max_height":         true,
	"quality":            true,
}

// FileHandler handles HTTP requests for file ingestion and delivery
type FileHandler struct {
	uploads  *service.UploadService
	deletes  *service.DeleteService
	resolver *service.ResolveService
}

// NewFileHandler creates a new file handler
func NewFileHandler(
	uploads *service.UploadService,
	deletes *service.DeleteService,
	resolver *service.ResolveService,
) *FileHandler {
	return &FileHandler{
		uploads:  uploads,
		deletes:  deletes,
		resolver: resolver,
	}
}

// Upload handles POST /v1/files/:category
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	category := c.Params("category")

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid multipart form: " + err.Error(),
		})
	}

	opts, err := parseUploadOptions(form)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	files := form.File[fileField]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "missing '" + fileField + "' field in form data",
		})
	}

	buffer, err := readFormFile(files[0])
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to read uploaded file",
		})
	}

	out, err := h.uploads.Store(c.UserContext(), service.UploadInput{
		Buffer:       buffer,
		OriginalName: files[0].Filename,
		MimeType:     files[0].Header.Get("Content-Type"),
		Category:     category,
		Options:      opts,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

// UploadBatch handles POST /v1/files/:category/batch
func (h *FileHandler) UploadBatch(c *fiber.Ctx) error {
	category := c.Params("category")

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid multipart form: " + err.Error(),
		})
	}

	opts, err := parseUploadOptions(form)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	files := form.File[fileField]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "missing '" + fileField + "' field in form data",
		})
	}

	inputs := make([]service.UploadInput, 0, len(files))
	for _, fh := range files {
		buffer, err := readFormFile(fh)
		if err != nil {
			log.Printf("Warning: batch upload: reading %s failed: %v", fh.Filename, err)
			buffer = nil // validation rejects the empty buffer downstream
		}
		inputs = append(inputs, service.UploadInput{
			Buffer:       buffer,
			OriginalName: fh.Filename,
			MimeType:     fh.Header.Get("Content-Type"),
			Category:     category,
			Options:      opts,
		})
	}

	items := h.uploads.StoreBatch(c.UserContext(), inputs)

	// Per-file aggregation: siblings of a failed file still succeed
	results := make([]fiber.Map, 0, len(items))
	succeeded := 0
	for _, item := range items {
		entry := fiber.Map{"original_name": item.OriginalName}
		if item.Err != nil {
			entry["success"] = false
			entry["error"] = publicErrorMessage(item.Err)
		} else {
			entry["success"] = true
			entry["data"] = item.Output
			succeeded++
		}
		results = append(results, entry)
	}

	status := fiber.StatusCreated
	if succeeded == 0 {
		status = fiber.StatusBadRequest
	} else if succeeded < len(items) {
		status = fiber.StatusMultiStatus
	}

	return c.Status(status).JSON(fiber.Map{
		"success": succeeded == len(items),
		"data":    results,
	})
}

// Get handles GET /v1/files/:id
func (h *FileHandler) Get(c *fiber.Ctx) error {
	record, err := h.resolver.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// GetContent handles GET /v1/files/:id/content
// Redirects to the CDN or direct URL; private categories get a signed URL.
func (h *FileHandler) GetContent(c *fiber.Ctx) error {
	url, err := h.resolver.ResolveURL(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Redirect(url, fiber.StatusFound)
}

// Delete handles DELETE /v1/files/:id
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.deletes.Remove(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"id": id, "deleted": true},
	})
}

// parseUploadOptions turns form values into per-request policy overrides.
// Unknown keys are rejected so a typo never silently falls back to defaults.
func parseUploadOptions(form *multipart.Form) (*domain.UploadOptions, error) {
	for key := range form.Value {
		if !optionFields[key] {
			return nil, errors.New("unknown option field: " + key)
		}
	}

	formValue := func(key string) string {
		if vals := form.Value[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	opts := &domain.UploadOptions{}
	touched := false

	if v := formValue("max_size"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, errors.New("invalid max_size: " + v)
		}
		opts.MaxSize = &n
		touched = true
	}
	if v := formValue("allowed_extensions"); v != "" {
		for _, ext := range strings.Split(v, ",") {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			opts.AllowedExtensions = append(opts.AllowedExtensions, ext)
		}
		touched = true
	}
	if v := formValue("optimize"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid optimize: " + v)
		}
		opts.OptimizeImages = &b
		touched = true
	}
	if n, err := parseBoundedInt(formValue("max_width")); err != nil {
		return nil, errors.New("invalid max_width")
	} else if n != nil {
		opts.MaxWidth = n
		touched = true
	}
	if n, err := parseBoundedInt(formValue("max_height")); err != nil {
		return nil, errors.New("invalid max_height")
	} else if n != nil {
		opts.MaxHeight = n
		touched = true
	}
	if v := formValue("quality"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return nil, errors.New("invalid quality: " + v)
		}
		opts.Quality = &n
		touched = true
	}

	if !touched {
		return nil, nil
	}
	return opts, nil
}

func parseBoundedInt(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return nil, errors.New("not a positive integer")
	}
	return &n, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// respondError maps domain errors onto HTTP statuses. Backend-native detail
// (endpoints, signatures, SDK messages) never reaches the client.
func respondError(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   ve.Detail,
			"reason":  string(ve.Reason),
		})
	}

	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "file not found",
		})
	}

	if errors.Is(err, domain.ErrStorageNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "storage backend not configured",
		})
	}

	if se := domain.AsStorage(err); se != nil {
		log.Printf("ERROR: storage failure: %v", se)
		body := fiber.Map{
			"success": false,
			"error":   "storage temporarily unavailable",
		}
		if se.RequestID != "" {
			body["request_id"] = se.RequestID
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}

	log.Printf("ERROR: unhandled failure: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "internal server error",
	})
}

// publicErrorMessage is the batch-item variant of respondError: same
// masking rules, message only.
func publicErrorMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Detail
	}
	if domain.AsStorage(err) != nil {
		return "storage temporarily unavailable"
	}
	if errors.Is(err, domain.ErrStorageNotConfigured) {
		return "storage backend not configured"
	}
	return "internal server error"
}
