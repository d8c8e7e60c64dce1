package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	appconfig "github.com/mediadepot/api/internal/config"
	"github.com/mediadepot/api/internal/domain"
)

// S3StorageClient implements domain.StorageClient against AWS S3 or any
// S3-compatible store (SeaweedFS, MinIO, CEPH) via a custom endpoint.
type S3StorageClient struct {
	client    s3API
	presigner presignAPI
	bucket    string
	region    string
	endpoint  string
	retry     RetryPolicy
}

// s3API is the slice of the S3 client the storage client uses. Tests swap
// in a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4PresignedRequest, error)
}

// v4PresignedRequest mirrors the fields of the SDK's presigned request we
// consume.
type v4PresignedRequest struct {
	URL string
}

// presignAdapter wraps *s3.PresignClient behind presignAPI
type presignAdapter struct {
	inner *s3.PresignClient
}

func (a presignAdapter) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4PresignedRequest, error) {
	req, err := a.inner.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &v4PresignedRequest{URL: req.URL}, nil
}

// NewS3StorageClient creates a storage client from configuration.
// It fails up front with domain.ErrStorageNotConfigured when no bucket
// identity is present, so a misconfigured deployment dies at boot instead
// of on the first upload.
func NewS3StorageClient(ctx context.Context, cfg appconfig.S3Config) (*S3StorageClient, error) {
	if !cfg.Configured() {
		return nil, domain.ErrStorageNotConfigured
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		// The SDK's built-in retryer is disabled: retry/backoff lives in
		// this client so attempt accounting is deterministic and testable.
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // required for most S3-compatible stores
		}
	})

	return &S3StorageClient{
		client:    client,
		presigner: presignAdapter{inner: s3.NewPresignClient(client)},
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		retry:     DefaultRetryPolicy,
	}, nil
}

// PutObject uploads a buffer under key with retry/backoff and returns the
// backend acknowledgment.
func (c *S3StorageClient) PutObject(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (*domain.UploadResult, error) {
	var out *s3.PutObjectOutput
	err := withRetry(ctx, c.retry, c.classifyPut, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
			Metadata:    metadata,
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}

	return &domain.UploadResult{
		Location: c.objectURL(key),
		Key:      key,
		ETag:     strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

// DeleteObject removes the object at key. Deleting a key that no longer
// exists succeeds: deletion is idempotent.
func (c *S3StorageClient) DeleteObject(ctx context.Context, key string) error {
	callCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	_, err := c.client.DeleteObject(callCtx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		serr := c.classify("DeleteObject", err)
		if serr.Kind == domain.KindObjectNotFound {
			return nil
		}
		return serr
	}
	return nil
}

// SignedURL returns a time-limited GET URL for private access
func (c *S3StorageClient) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", c.classify("SignedURL", err)
	}
	return req.URL, nil
}

func (c *S3StorageClient) classifyPut(err error) *domain.StorageError {
	return c.classify("PutObject", err)
}

// classify maps a backend-native error into the closed StorageError
// taxonomy, enriched with the operation name, the backend request id when
// present, and an actionable hint. Credential material in the raw message
// is masked.
func (c *S3StorageClient) classify(op string, err error) *domain.StorageError {
	serr := &domain.StorageError{
		Op:  op,
		Err: errors.New(maskSecrets(err.Error())),
	}

	var withReqID interface{ ServiceRequestID() string }
	if errors.As(err, &withReqID) {
		serr.RequestID = withReqID.ServiceRequestID()
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		// No service response at all: network failure or timeout.
		serr.Kind = domain.KindBackendUnavailable
		serr.Hint = "network failure reaching the storage backend"
		return serr
	}

	switch apiErr.ErrorCode() {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		serr.Kind = domain.KindAccessDenied
		serr.Hint = fmt.Sprintf("verify IAM permissions on bucket %s", c.bucket)
	case "NoSuchBucket":
		serr.Kind = domain.KindBucketNotFound
		serr.Hint = fmt.Sprintf("bucket %s does not exist; check S3_BUCKET", c.bucket)
	case "EntityTooLarge":
		serr.Kind = domain.KindObjectTooLarge
		serr.Hint = "object exceeds the backend per-request size limit"
	case "NoSuchKey", "NotFound":
		serr.Kind = domain.KindObjectNotFound
	case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded",
		"RequestTimeout", "ServiceUnavailable", "InternalError":
		serr.Kind = domain.KindBackendUnavailable
		serr.Hint = "backend throttling or transient failure"
	case "MalformedXML", "InvalidRequest", "InvalidArgument":
		serr.Kind = domain.KindMalformed
		serr.Hint = "request rejected by the backend; check client configuration"
	default:
		if apiErr.ErrorFault() == smithy.FaultServer {
			serr.Kind = domain.KindBackendUnavailable
			serr.Hint = "unclassified backend server fault"
		} else {
			serr.Kind = domain.KindMalformed
			serr.Hint = "unclassified backend rejection: " + apiErr.ErrorCode()
		}
	}
	return serr
}

// objectURL is the backend-native address of key
func (c *S3StorageClient) objectURL(key string) string {
	if c.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}
