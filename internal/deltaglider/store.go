package deltaglider

import (
	"context"
	"io"
)

// Credentials identify one S3-compatible account the console talks to.
type Credentials struct {
	Endpoint     string `json:"endpoint"`
	AccessKey    string `json:"accessKey"`
	SecretKey    string `json:"secretKey"`
	SessionToken string `json:"sessionToken,omitempty"`
	Region       string `json:"region,omitempty"`
}

// Store is the delta-aware view over one storage account. Implementations
// must be safe for concurrent use.
type Store interface {
	ListBuckets(ctx context.Context) ([]BucketSnapshot, error)
	CreateBucket(ctx context.Context, name string) error
	DeleteBucket(ctx context.Context, name string) error
	BucketExists(ctx context.Context, name string) (bool, error)

	// ListObjects returns one delimiter-listing page under prefix. The
	// returned cursor, when non-empty, resumes the listing.
	ListObjects(ctx context.Context, bucket, prefix string, opts ListOptions) (ObjectListing, error)
	GetMetadata(ctx context.Context, bucket, key string) (FileMetadata, error)
	OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error)
	EstimatedObjectSize(ctx context.Context, bucket, key string) (int64, error)
	PresignedGetURL(ctx context.Context, bucket, key string, expirySeconds int) (string, error)

	Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (UploadSummary, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	// DeleteObjects removes a batch of keys, reporting each key's outcome.
	// The error return covers failures affecting the whole batch.
	DeleteObjects(ctx context.Context, bucket string, keys []string) (BatchDeleteResult, error)

	// ComputeBucketStats walks the bucket according to mode and returns a
	// fresh snapshot.
	ComputeBucketStats(ctx context.Context, bucket string, mode StatsMode) (BucketSnapshot, error)
}

// StoreFactory creates stores bound to a credential set.
type StoreFactory interface {
	NewStore(creds Credentials) (Store, error)
}
