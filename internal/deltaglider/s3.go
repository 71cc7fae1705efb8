package deltaglider

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const deltaSuffix = ".delta"

// Metadata keys carrying logical sizes for delta objects. Older writers used
// the legacy names, so all are checked in order.
var (
	originalSizeKeys = []string{"dg-file-size", "deltaglider-original-size", "file_size"}
	storedSizeKeys   = []string{"dg-delta-size", "deltaglider-delta-size", "delta-size"}
)

// S3Store implements Store on top of an S3-compatible backend via minio-go.
// The optional admin client enables the quick stats path on MinIO backends.
type S3Store struct {
	client *minio.Client
	admin  *madmin.AdminClient
	region string
	stats  *bucketStatsCache
}

// S3Factory builds stores bound to static credentials. The bucket stats
// snapshots are shared between the per-request stores of one account so
// computed savings survive across requests.
type S3Factory struct {
	mu    sync.Mutex
	stats map[string]*bucketStatsCache
}

func (f *S3Factory) statsFor(creds Credentials) *bucketStatsCache {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stats == nil {
		f.stats = make(map[string]*bucketStatsCache)
	}
	key := creds.Endpoint + "|" + creds.AccessKey
	c, ok := f.stats[key]
	if !ok {
		c = newBucketStatsCache()
		f.stats[key] = c
	}
	return c
}

// shouldUseSSL determines if SSL should be used based on the endpoint.
// Returns false for localhost, 127.0.0.1, and docker service names.
func shouldUseSSL(endpoint string) bool {
	host := strings.Split(endpoint, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return false
	}
	// Bare service names (minio:9000, storage:9000) are in-cluster traffic.
	if !strings.Contains(host, ".") && strings.Contains(endpoint, ":") {
		return false
	}
	return true
}

func (f *S3Factory) NewStore(creds Credentials) (Store, error) {
	secure := shouldUseSSL(creds.Endpoint)
	client, err := minio.New(creds.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, creds.SessionToken),
		Secure: secure,
		Region: creds.Region,
	})
	if err != nil {
		return nil, err
	}

	// The admin client is best effort: non-MinIO backends reject admin
	// calls at request time, at which point stats fall back to sampling.
	admin, err := madmin.NewWithOptions(creds.Endpoint, &madmin.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		admin = nil
	}

	return &S3Store{
		client: client,
		admin:  admin,
		region: creds.Region,
		stats:  f.statsFor(creds),
	}, nil
}

func (s *S3Store) ListBuckets(ctx context.Context) ([]BucketSnapshot, error) {
	infos, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, translateErr(err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	s.stats.dropMissing(names)

	snapshots := make([]BucketSnapshot, 0, len(names))
	for _, name := range names {
		snap, ok := s.stats.get(name)
		if !ok {
			snap = BucketSnapshot{Name: name}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (s *S3Store) CreateBucket(ctx context.Context, name string) error {
	err := s.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: s.region})
	if err != nil {
		return translateErr(err)
	}
	s.stats.put(BucketSnapshot{Name: name})
	return nil
}

func (s *S3Store) DeleteBucket(ctx context.Context, name string) error {
	if err := s.client.RemoveBucket(ctx, name); err != nil {
		return translateErr(err)
	}
	s.stats.remove(name)
	return nil
}

func (s *S3Store) BucketExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.BucketExists(ctx, name)
	if err != nil {
		return false, translateErr(err)
	}
	return exists, nil
}

func (s *S3Store) ListObjects(ctx context.Context, bucket, prefix string, opts ListOptions) (ObjectListing, error) {
	normalized := normalizePrefix(prefix)
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := s.client.ListObjects(listCtx, bucket, minio.ListObjectsOptions{
		Prefix:     normalized,
		Recursive:  false,
		StartAfter: opts.Cursor,
	})

	var listing ObjectListing
	seenPrefixes := make(map[string]struct{})
	count := 0
	lastKey := ""
	truncated := false

	for info := range ch {
		if info.Err != nil {
			return ObjectListing{}, translateErr(info.Err)
		}

		// Peek one entry past the page before emitting a cursor: an
		// exactly full page with nothing behind it is still exhausted.
		if count >= limit {
			truncated = true
			break
		}
		lastKey = info.Key

		if strings.HasSuffix(info.Key, "/") {
			if info.Key != normalized {
				if _, ok := seenPrefixes[info.Key]; !ok {
					seenPrefixes[info.Key] = struct{}{}
					listing.CommonPrefixes = append(listing.CommonPrefixes, info.Key)
				}
			}
			count++
		} else {
			obj := s.logicalObject(ctx, bucket, info, opts.WithMetadata)
			listing.Objects = append(listing.Objects, obj)
			count++
		}
	}

	if truncated {
		listing.NextCursor = lastKey
	}
	return listing, nil
}

func (s *S3Store) GetMetadata(ctx context.Context, bucket, key string) (FileMetadata, error) {
	normalized := normalizeKey(key)

	// Prefer the delta representation for compressed objects, then fall
	// back to the plain key.
	candidates := []string{normalized}
	if !strings.HasSuffix(normalized, deltaSuffix) {
		candidates = []string{normalized + deltaSuffix, normalized}
	}

	var lastErr error
	for _, candidate := range candidates {
		info, err := s.client.StatObject(ctx, bucket, candidate, minio.StatObjectOptions{})
		if err != nil {
			lastErr = translateErr(err)
			continue
		}

		compressed := strings.HasSuffix(candidate, deltaSuffix)
		original := metaInt(info.UserMetadata, originalSizeKeys)
		stored := metaInt(info.UserMetadata, storedSizeKeys)
		if stored == 0 {
			stored = info.Size
		}
		if original == 0 {
			original = stored
		}

		return FileMetadata{
			Key:           strings.TrimSuffix(candidate, deltaSuffix),
			OriginalBytes: original,
			StoredBytes:   stored,
			Compressed:    compressed,
			Modified:      info.LastModified.UTC(),
			AcceptRanges:  true,
			ContentType:   info.ContentType,
			ETag:          strings.Trim(info.ETag, `"`),
			Metadata:      info.UserMetadata,
		}, nil
	}
	if lastErr == nil {
		lastErr = ErrKeyNotFound
	}
	return FileMetadata{}, lastErr
}

func (s *S3Store) OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	physical, err := s.resolvePhysicalKey(ctx, bucket, key)
	if err != nil {
		return nil, 0, err
	}
	obj, err := s.client.GetObject(ctx, bucket, physical, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, translateErr(err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, translateErr(err)
	}
	return obj, info.Size, nil
}

func (s *S3Store) EstimatedObjectSize(ctx context.Context, bucket, key string) (int64, error) {
	meta, err := s.GetMetadata(ctx, bucket, key)
	if err != nil {
		return 0, err
	}
	return meta.OriginalBytes, nil
}

func (s *S3Store) PresignedGetURL(ctx context.Context, bucket, key string, expirySeconds int) (string, error) {
	physical, err := s.resolvePhysicalKey(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, bucket, physical, time.Duration(expirySeconds)*time.Second, nil)
	if err != nil {
		return "", translateErr(err)
	}
	return u.String(), nil
}

func (s *S3Store) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (UploadSummary, error) {
	normalized := normalizeKey(key)
	if normalized == "" {
		return UploadSummary{}, fmt.Errorf("object key cannot be empty")
	}

	_, err := s.client.PutObject(ctx, bucket, normalized, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return UploadSummary{}, translateErr(err)
	}

	summary := UploadSummary{
		Bucket:        bucket,
		Key:           normalized,
		OriginalBytes: size,
		StoredBytes:   size,
		Operation:     "put",
	}

	// The backend may have rewritten the object as a delta; pick up the
	// stored representation when it did.
	if meta, metaErr := s.GetMetadata(ctx, bucket, normalized); metaErr == nil {
		summary.StoredBytes = meta.StoredBytes
		summary.Compressed = meta.Compressed
	}

	s.stats.remove(bucket)
	return summary, nil
}

func (s *S3Store) DeleteObject(ctx context.Context, bucket, key string) error {
	physical, err := s.resolvePhysicalKey(ctx, bucket, key)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, bucket, physical, minio.RemoveObjectOptions{}); err != nil {
		return translateErr(err)
	}
	s.stats.remove(bucket)
	return nil
}

func (s *S3Store) DeleteObjects(ctx context.Context, bucket string, keys []string) (BatchDeleteResult, error) {
	physToLogical := make(map[string]string, len(keys))
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		physical, err := s.resolvePhysicalKey(ctx, bucket, key)
		if err != nil {
			physical = normalizeKey(key)
		}
		physToLogical[physical] = key
		objects <- minio.ObjectInfo{Key: physical}
	}
	close(objects)

	failed := make(map[string]string)
	for result := range s.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		if result.Err == nil {
			continue
		}
		logical, ok := physToLogical[result.ObjectName]
		if !ok {
			logical = result.ObjectName
		}
		failed[logical] = translateErr(result.Err).Error()
	}

	var res BatchDeleteResult
	for _, key := range keys {
		if msg, ok := failed[key]; ok {
			res.Errors = append(res.Errors, KeyError{Key: key, Error: msg})
		} else {
			res.Deleted = append(res.Deleted, key)
		}
	}
	s.stats.remove(bucket)
	return res, nil
}

func (s *S3Store) ComputeBucketStats(ctx context.Context, bucket string, mode StatsMode) (BucketSnapshot, error) {
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return BucketSnapshot{}, err
	}
	if !exists {
		return BucketSnapshot{}, ErrBucketNotFound
	}

	if mode == StatsQuick {
		if snap, ok := s.quickStats(ctx, bucket); ok {
			s.stats.put(snap)
			return snap, nil
		}
		// No usable usage counters; a bounded sample is the next cheapest.
		mode = StatsSampled
	}

	snap, err := s.walkStats(ctx, bucket, mode)
	if err != nil {
		return BucketSnapshot{}, err
	}
	s.stats.put(snap)
	return snap, nil
}

// quickStats reads backend-maintained usage counters (MinIO only).
func (s *S3Store) quickStats(ctx context.Context, bucket string) (BucketSnapshot, bool) {
	if s.admin == nil {
		return BucketSnapshot{}, false
	}
	usage, err := s.admin.DataUsageInfo(ctx)
	if err != nil {
		log.Printf("deltaglider: data usage unavailable, sampling instead: %v", err)
		return BucketSnapshot{}, false
	}
	size, ok := usage.BucketSizes[bucket]
	if !ok {
		return BucketSnapshot{}, false
	}
	now := time.Now().UTC()
	snap := BucketSnapshot{
		Name:          bucket,
		OriginalBytes: int64(size),
		StoredBytes:   int64(size),
		ComputedAt:    &now,
	}
	if bu, ok := usage.BucketsUsage[bucket]; ok {
		snap.ObjectCount = int64(bu.ObjectsCount)
	}
	return snap, true
}

func (s *S3Store) walkStats(ctx context.Context, bucket string, mode StatsMode) (BucketSnapshot, error) {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := s.client.ListObjects(listCtx, bucket, minio.ListObjectsOptions{Recursive: true})

	var count, original, stored int64
	limited := false
	for info := range ch {
		if info.Err != nil {
			return BucketSnapshot{}, translateErr(info.Err)
		}
		if strings.HasSuffix(info.Key, "/") {
			continue
		}
		obj := s.logicalObject(ctx, bucket, info, mode == StatsDetailed)
		count++
		original += obj.OriginalBytes
		stored += obj.StoredBytes

		if mode == StatsSampled && count >= SampleLimit {
			limited = true
			break
		}
	}

	now := time.Now().UTC()
	return BucketSnapshot{
		Name:          bucket,
		ObjectCount:   count,
		OriginalBytes: original,
		StoredBytes:   stored,
		SavingsPct:    SavingsPct(original, stored),
		ComputedAt:    &now,
		CountLimited:  limited,
	}, nil
}

// logicalObject converts a raw listing entry, resolving delta sizes through a
// targeted stat call when metadata is requested.
func (s *S3Store) logicalObject(ctx context.Context, bucket string, info minio.ObjectInfo, withMetadata bool) LogicalObject {
	obj := logicalFromInfo(info)
	if obj.Compressed && withMetadata && obj.OriginalBytes <= obj.StoredBytes {
		if stat, err := s.client.StatObject(ctx, bucket, obj.PhysicalKey, minio.StatObjectOptions{}); err == nil {
			if original := metaInt(stat.UserMetadata, originalSizeKeys); original > 0 {
				obj.OriginalBytes = original
			}
			if stored := metaInt(stat.UserMetadata, storedSizeKeys); stored > 0 {
				obj.StoredBytes = stored
			}
		}
	}
	return obj
}

// logicalFromInfo maps one listing entry onto the logical view without any
// extra requests.
func logicalFromInfo(info minio.ObjectInfo) LogicalObject {
	compressed := strings.HasSuffix(info.Key, deltaSuffix)
	key := strings.TrimSuffix(info.Key, deltaSuffix)
	original := metaInt(info.UserMetadata, originalSizeKeys)
	if original == 0 {
		original = info.Size
	}
	return LogicalObject{
		Key:           key,
		OriginalBytes: original,
		StoredBytes:   info.Size,
		Compressed:    compressed,
		Modified:      info.LastModified.UTC(),
		PhysicalKey:   info.Key,
	}
}

// resolvePhysicalKey finds the stored key for a logical one, trying the delta
// representation first.
func (s *S3Store) resolvePhysicalKey(ctx context.Context, bucket, key string) (string, error) {
	normalized := normalizeKey(key)
	candidates := []string{normalized}
	if !strings.HasSuffix(normalized, deltaSuffix) {
		candidates = []string{normalized + deltaSuffix, normalized}
	}
	var lastErr error
	for _, candidate := range candidates {
		if _, err := s.client.StatObject(ctx, bucket, candidate, minio.StatObjectOptions{}); err == nil {
			return candidate, nil
		} else {
			lastErr = translateErr(err)
		}
	}
	if lastErr == nil {
		lastErr = ErrKeyNotFound
	}
	return "", lastErr
}

func normalizePrefix(prefix string) string {
	trimmed := strings.TrimPrefix(prefix, "/")
	if trimmed != "" && !strings.HasSuffix(trimmed, "/") {
		trimmed += "/"
	}
	return trimmed
}

func normalizeKey(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), "/")
}

// metaInt scans user metadata for the first parseable integer among the given
// names, case-insensitively. Stat responses canonicalize header casing, so a
// direct map lookup is not enough.
func metaInt(md map[string]string, names []string) int64 {
	if len(md) == 0 {
		return 0
	}
	for _, name := range names {
		for k, v := range md {
			if strings.EqualFold(k, name) {
				if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
					return n
				}
			}
		}
	}
	return 0
}

// translateErr maps backend error codes onto the package's sentinel errors.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "NoSuchKey", "NotFound":
		return ErrKeyNotFound
	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return ErrBucketExists
	case "BucketNotEmpty":
		return ErrBucketNotEmpty
	}
	return err
}
