package deltaglider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryObject seeds one object into a MemoryStore.
type MemoryObject struct {
	Key           string
	Data          []byte
	OriginalBytes int64
	StoredBytes   int64
	Compressed    bool
	Modified      time.Time
	ContentType   string
}

// MemoryStore is an in-memory Store used by tests. Listing order is
// lexicographic by key, matching S3 semantics, and cursors are the last
// emitted key exactly like the S3 adapter.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]MemoryObject

	// FailListing, when set, makes every ListObjects call return this error.
	FailListing error
	// ListCalls counts ListObjects invocations (for dedupe assertions).
	ListCalls int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]MemoryObject)}
}

// Seed creates the bucket if needed and stores the object.
func (m *MemoryStore) Seed(bucket string, obj MemoryObject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buckets[bucket] == nil {
		m.buckets[bucket] = make(map[string]MemoryObject)
	}
	if obj.Modified.IsZero() {
		obj.Modified = time.Now().UTC()
	}
	if obj.OriginalBytes == 0 {
		obj.OriginalBytes = int64(len(obj.Data))
	}
	if obj.StoredBytes == 0 {
		obj.StoredBytes = obj.OriginalBytes
	}
	m.buckets[bucket][obj.Key] = obj
}

func (m *MemoryStore) ListBuckets(ctx context.Context) ([]BucketSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.buckets))
	for name := range m.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	snaps := make([]BucketSnapshot, 0, len(names))
	for _, name := range names {
		snaps = append(snaps, m.snapshotLocked(name))
	}
	return snaps, nil
}

func (m *MemoryStore) snapshotLocked(name string) BucketSnapshot {
	var count, original, stored int64
	for _, obj := range m.buckets[name] {
		count++
		original += obj.OriginalBytes
		stored += obj.StoredBytes
	}
	return BucketSnapshot{
		Name:          name,
		ObjectCount:   count,
		OriginalBytes: original,
		StoredBytes:   stored,
		SavingsPct:    SavingsPct(original, stored),
	}
}

func (m *MemoryStore) CreateBucket(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[name]; ok {
		return ErrBucketExists
	}
	m.buckets[name] = make(map[string]MemoryObject)
	return nil
}

func (m *MemoryStore) DeleteBucket(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.buckets[name]
	if !ok {
		return ErrBucketNotFound
	}
	if len(objs) > 0 {
		return ErrBucketNotEmpty
	}
	delete(m.buckets, name)
	return nil
}

func (m *MemoryStore) BucketExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.buckets[name]
	return ok, nil
}

func (m *MemoryStore) ListObjects(ctx context.Context, bucket, prefix string, opts ListOptions) (ObjectListing, error) {
	m.mu.Lock()
	m.ListCalls++
	failErr := m.FailListing
	m.mu.Unlock()
	if failErr != nil {
		return ObjectListing{}, failErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	objs, ok := m.buckets[bucket]
	if !ok {
		return ObjectListing{}, ErrBucketNotFound
	}

	normalized := normalizePrefix(prefix)
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	// Delimiter listing: entries directly under the prefix, folders rolled
	// up into common prefixes.
	type entry struct {
		key      string
		isPrefix bool
		obj      MemoryObject
	}
	var entries []entry
	seen := make(map[string]struct{})
	for key, obj := range objs {
		if !strings.HasPrefix(key, normalized) {
			continue
		}
		rest := strings.TrimPrefix(key, normalized)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			cp := normalized + rest[:idx+1]
			if _, dup := seen[cp]; !dup {
				seen[cp] = struct{}{}
				entries = append(entries, entry{key: cp, isPrefix: true})
			}
			continue
		}
		entries = append(entries, entry{key: key, obj: obj})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	var remaining []entry
	for _, e := range entries {
		if opts.Cursor != "" && e.key <= opts.Cursor {
			continue
		}
		remaining = append(remaining, e)
	}

	// A cursor is only handed out when an entry past the page actually
	// exists; a listing that fills the page exactly is still exhausted.
	truncated := len(remaining) > limit
	if truncated {
		remaining = remaining[:limit]
	}

	var listing ObjectListing
	for _, e := range remaining {
		if e.isPrefix {
			listing.CommonPrefixes = append(listing.CommonPrefixes, e.key)
		} else {
			listing.Objects = append(listing.Objects, LogicalObject{
				Key:           e.key,
				OriginalBytes: e.obj.OriginalBytes,
				StoredBytes:   e.obj.StoredBytes,
				Compressed:    e.obj.Compressed,
				Modified:      e.obj.Modified,
				PhysicalKey:   e.key,
			})
		}
	}
	if truncated {
		listing.NextCursor = remaining[len(remaining)-1].key
	}
	return listing, nil
}

func (m *MemoryStore) GetMetadata(ctx context.Context, bucket, key string) (FileMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, err := m.lookupLocked(bucket, key)
	if err != nil {
		return FileMetadata{}, err
	}
	return FileMetadata{
		Key:           obj.Key,
		OriginalBytes: obj.OriginalBytes,
		StoredBytes:   obj.StoredBytes,
		Compressed:    obj.Compressed,
		Modified:      obj.Modified,
		AcceptRanges:  true,
		ContentType:   obj.ContentType,
	}, nil
}

func (m *MemoryStore) OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, err := m.lookupLocked(bucket, key)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), int64(len(obj.Data)), nil
}

func (m *MemoryStore) EstimatedObjectSize(ctx context.Context, bucket, key string) (int64, error) {
	meta, err := m.GetMetadata(ctx, bucket, key)
	if err != nil {
		return 0, err
	}
	return meta.OriginalBytes, nil
}

func (m *MemoryStore) PresignedGetURL(ctx context.Context, bucket, key string, expirySeconds int) (string, error) {
	if _, err := m.GetMetadata(ctx, bucket, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://example.invalid/%s/%s?X-Amz-Expires=%d", bucket, key, expirySeconds), nil
}

func (m *MemoryStore) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (UploadSummary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return UploadSummary{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		return UploadSummary{}, ErrBucketNotFound
	}
	obj := MemoryObject{
		Key:           key,
		Data:          data,
		OriginalBytes: int64(len(data)),
		StoredBytes:   int64(len(data)),
		Modified:      time.Now().UTC(),
		ContentType:   contentType,
	}
	m.buckets[bucket][key] = obj
	return UploadSummary{
		Bucket:        bucket,
		Key:           key,
		OriginalBytes: obj.OriginalBytes,
		StoredBytes:   obj.StoredBytes,
		Operation:     "put",
	}, nil
}

func (m *MemoryStore) DeleteObject(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.buckets[bucket]
	if !ok {
		return ErrBucketNotFound
	}
	if _, ok := objs[key]; !ok {
		return ErrKeyNotFound
	}
	delete(objs, key)
	return nil
}

func (m *MemoryStore) DeleteObjects(ctx context.Context, bucket string, keys []string) (BatchDeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.buckets[bucket]
	if !ok {
		return BatchDeleteResult{}, ErrBucketNotFound
	}
	for _, key := range keys {
		delete(objs, key)
	}
	return BatchDeleteResult{Deleted: append([]string(nil), keys...)}, nil
}

func (m *MemoryStore) ComputeBucketStats(ctx context.Context, bucket string, mode StatsMode) (BucketSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.buckets[bucket]; !ok {
		return BucketSnapshot{}, ErrBucketNotFound
	}
	snap := m.snapshotLocked(bucket)
	now := time.Now().UTC()
	snap.ComputedAt = &now
	return snap, nil
}

func (m *MemoryStore) lookupLocked(bucket, key string) (MemoryObject, error) {
	objs, ok := m.buckets[bucket]
	if !ok {
		return MemoryObject{}, ErrBucketNotFound
	}
	obj, ok := objs[key]
	if !ok {
		return MemoryObject{}, ErrKeyNotFound
	}
	return obj, nil
}

// MemoryFactory returns the same store for every credential set.
type MemoryFactory struct {
	Store *MemoryStore
}

func (f *MemoryFactory) NewStore(creds Credentials) (Store, error) {
	return f.Store, nil
}
