package domain

// UploadPolicy is the per-category table entry controlling validation and
// optimization. Size ceilings and extension sets are enforced before any
// transform or network call.
type UploadPolicy struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
	OptimizeImages    bool
	MaxWidth          int
	MaxHeight         int
	Quality           int // JPEG quality factor, 0-100
	Private           bool
}

const (
	MB = 1 << 20

	defaultMaxWidth  = 2048
	defaultMaxHeight = 2048
	defaultQuality   = 82
)

// Known categories
const (
	CategoryAlbum    = "album"
	CategoryArticle  = "article"
	CategoryAvatar   = "avatar"
	CategoryAudio    = "audio"
	CategoryVideo    = "video"
	CategoryDocument = "document"
)

var imageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}

var categoryPolicies = map[string]UploadPolicy{
	CategoryAlbum: {
		MaxSizeBytes:      10 * MB,
		AllowedExtensions: imageExtensions,
		OptimizeImages:    true,
		MaxWidth:          defaultMaxWidth,
		MaxHeight:         defaultMaxHeight,
		Quality:           defaultQuality,
	},
	CategoryArticle: {
		MaxSizeBytes:      10 * MB,
		AllowedExtensions: imageExtensions,
		OptimizeImages:    true,
		MaxWidth:          defaultMaxWidth,
		MaxHeight:         defaultMaxHeight,
		Quality:           defaultQuality,
	},
	CategoryAvatar: {
		MaxSizeBytes:      5 * MB,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "webp"},
		OptimizeImages:    true,
		MaxWidth:          512,
		MaxHeight:         512,
		Quality:           defaultQuality,
	},
	CategoryAudio: {
		MaxSizeBytes:      50 * MB,
		AllowedExtensions: []string{"mp3", "wav", "ogg", "flac", "m4a"},
	},
	CategoryVideo: {
		MaxSizeBytes:      200 * MB,
		AllowedExtensions: []string{"mp4", "webm", "mov"},
	},
	CategoryDocument: {
		MaxSizeBytes:      20 * MB,
		AllowedExtensions: []string{"pdf", "doc", "docx", "txt"},
		Private:           true,
	},
}

// defaultPolicy is the conservative fallback for unknown categories
var defaultPolicy = UploadPolicy{
	MaxSizeBytes:      5 * MB,
	AllowedExtensions: []string{"jpg", "jpeg", "png", "pdf"},
}

// PolicyFor returns the upload policy for category, falling back to the
// conservative default when the category is unknown.
func PolicyFor(category string) UploadPolicy {
	if p, ok := categoryPolicies[category]; ok {
		return p
	}
	return defaultPolicy
}

// UploadOptions carries per-request overrides of the category policy.
// Only this closed set of keys is recognized; the HTTP boundary rejects
// anything else.
type UploadOptions struct {
	MaxSize           *int64
	AllowedExtensions []string
	OptimizeImages    *bool
	MaxWidth          *int
	MaxHeight         *int
	Quality           *int
}

// Apply overlays the options onto a policy copy and returns it
func (o *UploadOptions) Apply(p UploadPolicy) UploadPolicy {
	if o == nil {
		return p
	}
	if o.MaxSize != nil {
		p.MaxSizeBytes = *o.MaxSize
	}
	if len(o.AllowedExtensions) > 0 {
		p.AllowedExtensions = o.AllowedExtensions
	}
	if o.OptimizeImages != nil {
		p.OptimizeImages = *o.OptimizeImages
	}
	if o.MaxWidth != nil {
		p.MaxWidth = *o.MaxWidth
	}
	if o.MaxHeight != nil {
		p.MaxHeight = *o.MaxHeight
	}
	if o.Quality != nil {
		p.Quality = *o.Quality
	}
	return p
}
