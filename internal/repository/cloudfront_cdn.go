package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/smithy-go"
	"github.com/oklog/ulid/v2"
	appconfig "github.com/mediadepot/api/internal/config"
	"github.com/mediadepot/api/internal/domain"
)

const (
	// CloudFront accepts at most 3000 paths per invalidation request;
	// larger lists are chunked with a short pause between requests to
	// respect the invalidation rate limit.
	invalidationBatchLimit = 3000
	invalidationChunkDelay = 500 * time.Millisecond
)

// cloudFrontAPI is the slice of the CloudFront client the resolver uses
type cloudFrontAPI interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// CloudFrontResolver implements domain.CDNResolver. URL construction is a
// pure function of configuration; invalidation is best-effort and becomes
// a logged no-op when no distribution is configured.
type CloudFrontResolver struct {
	client         cloudFrontAPI
	domain         string
	distributionID string
	directBase     string
	batchLimit     int
	chunkDelay     time.Duration
	retry          RetryPolicy
}

// NewCloudFrontResolver builds the resolver. The CloudFront client is only
// constructed when a distribution id is configured; URL building works
// either way.
func NewCloudFrontResolver(ctx context.Context, cdnCfg appconfig.CDNConfig, s3Cfg appconfig.S3Config) (*CloudFrontResolver, error) {
	r := &CloudFrontResolver{
		domain:         cdnCfg.Domain,
		distributionID: cdnCfg.DistributionID,
		directBase:     directBaseURL(s3Cfg),
		batchLimit:     invalidationBatchLimit,
		chunkDelay:     invalidationChunkDelay,
		retry:          DefaultRetryPolicy,
	}

	if cdnCfg.DistributionID == "" {
		return r, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s3Cfg.Region),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if s3Cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Cfg.AccessKey, s3Cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config for CloudFront: %w", err)
	}
	r.client = cloudfront.NewFromConfig(awsCfg)

	return r, nil
}

// BuildURL returns the CDN delivery URL for key, or "" when no CDN domain
// is configured.
func (r *CloudFrontResolver) BuildURL(key string) string {
	if r.domain == "" {
		return ""
	}
	return "https://" + r.domain + "/" + encodeKey(key)
}

// BuildDirectURL returns the backend-native URL for key
func (r *CloudFrontResolver) BuildDirectURL(key string) string {
	return r.directBase + "/" + encodeKey(key)
}

// Invalidate purges cached copies of the given paths. The path list is
// chunked to the per-request batch limit with a delay between chunks.
// Returns the id of the last submitted invalidation.
func (r *CloudFrontResolver) Invalidate(ctx context.Context, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}
	if r.client == nil || r.distributionID == "" {
		log.Printf("cdn: invalidation skipped, no distribution configured (%d paths)", len(paths))
		return "", nil
	}

	normalized := make([]string, len(paths))
	for i, p := range paths {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		normalized[i] = p
	}

	var lastID string
	for start := 0; start < len(normalized); start += r.batchLimit {
		end := start + r.batchLimit
		if end > len(normalized) {
			end = len(normalized)
		}
		chunk := normalized[start:end]

		var out *cloudfront.CreateInvalidationOutput
		err := withRetry(ctx, r.retry, r.classifyInvalidation, func(ctx context.Context) error {
			var callErr error
			out, callErr = r.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
				DistributionId: aws.String(r.distributionID),
				InvalidationBatch: &types.InvalidationBatch{
					CallerReference: aws.String(ulid.Make().String()),
					Paths: &types.Paths{
						Items:    chunk,
						Quantity: aws.Int32(int32(len(chunk))),
					},
				},
			})
			return callErr
		})
		if err != nil {
			return lastID, err
		}
		if out != nil && out.Invalidation != nil {
			lastID = aws.ToString(out.Invalidation.Id)
		}

		if end < len(normalized) {
			select {
			case <-ctx.Done():
				return lastID, ctx.Err()
			case <-time.After(r.chunkDelay):
			}
		}
	}

	return lastID, nil
}

func (r *CloudFrontResolver) classifyInvalidation(err error) *domain.StorageError {
	serr := &domain.StorageError{
		Op:  "Invalidate",
		Err: errors.New(maskSecrets(err.Error())),
	}

	var withReqID interface{ ServiceRequestID() string }
	if errors.As(err, &withReqID) {
		serr.RequestID = withReqID.ServiceRequestID()
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		serr.Kind = domain.KindBackendUnavailable
		serr.Hint = "network failure reaching CloudFront"
		return serr
	}

	switch apiErr.ErrorCode() {
	case "AccessDenied":
		serr.Kind = domain.KindAccessDenied
		serr.Hint = fmt.Sprintf("verify IAM permissions on distribution %s", r.distributionID)
	case "NoSuchDistribution":
		serr.Kind = domain.KindBucketNotFound
		serr.Hint = fmt.Sprintf("distribution %s does not exist; check CDN_DISTRIBUTION_ID", r.distributionID)
	case "TooManyInvalidationsInProgress", "Throttling", "ServiceUnavailable":
		serr.Kind = domain.KindBackendUnavailable
		serr.Hint = "CloudFront invalidation rate limit hit"
	default:
		if apiErr.ErrorFault() == smithy.FaultServer {
			serr.Kind = domain.KindBackendUnavailable
		} else {
			serr.Kind = domain.KindMalformed
		}
	}
	return serr
}

// directBaseURL derives the backend-native base URL from storage
// configuration: path-style on the custom endpoint when present, the
// virtual-hosted AWS form otherwise.
func directBaseURL(cfg appconfig.S3Config) string {
	if cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// encodeKey URL-encodes each path segment of key, preserving separators
func encodeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
