package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/damacus/delta-commander/internal/listing"
)

const (
	// snapshotSchema is bumped when the stored record layout changes;
	// records written under an older schema are never read back.
	snapshotSchema = 1

	// DefaultSnapshotTTL bounds how stale a persisted directory may be
	// before it is treated as a miss. Persisted snapshots only seed the
	// first paint after a restart, so the window is generous.
	DefaultSnapshotTTL = 24 * time.Hour
)

var (
	snapshotsBucket = []byte("snapshots")
	versionsBucket  = []byte("versions")
)

// snapshotRecord wraps a directory with the bookkeeping needed to expire it.
type snapshotRecord struct {
	StoredAt  time.Time         `json:"stored_at"`
	Directory listing.Directory `json:"directory"`
}

// SnapshotStore persists complete directory listings across restarts.
// Invalidation is by version bump: each (fingerprint, bucket) pair carries a
// counter that is part of every record key, so invalidating a bucket makes
// all of its records unreachable without scanning them. Unreachable and
// expired records are removed lazily on read and by Compact.
type SnapshotStore struct {
	db  *bolt.DB
	ttl time.Duration
}

func OpenSnapshotStore(path string, ttl time.Duration) (*SnapshotStore, error) {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(snapshotsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(versionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising snapshot store: %w", err)
	}
	return &SnapshotStore{db: db, ttl: ttl}, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save persists the directory under the current version of its bucket.
func (s *SnapshotStore) Save(fingerprint string, dir listing.Directory) error {
	payload, err := json.Marshal(snapshotRecord{StoredAt: time.Now().UTC(), Directory: dir})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		version := readVersion(tx, fingerprint, dir.Bucket)
		key := snapshotKey(version, fingerprint, dir.Bucket, dir.Prefix)
		return tx.Bucket(snapshotsBucket).Put(key, payload)
	})
}

// Load returns the persisted directory for the prefix, if a fresh one exists.
// Expired records are deleted on the way out.
func (s *SnapshotStore) Load(fingerprint, bucket, prefix string) (listing.Directory, bool) {
	var rec snapshotRecord
	var expired []byte
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		version := readVersion(tx, fingerprint, bucket)
		key := snapshotKey(version, fingerprint, bucket, prefix)
		raw := tx.Bucket(snapshotsBucket).Get(key)
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			expired = key
			return nil
		}
		if time.Since(rec.StoredAt) > s.ttl {
			expired = key
			return nil
		}
		found = true
		return nil
	})
	if err != nil {
		return listing.Directory{}, false
	}
	if expired != nil {
		_ = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(snapshotsBucket).Delete(expired)
		})
	}
	if !found {
		return listing.Directory{}, false
	}
	return rec.Directory, true
}

// Invalidate bumps the bucket's version so existing records stop resolving.
func (s *SnapshotStore) Invalidate(fingerprint, bucket string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		version := readVersion(tx, fingerprint, bucket)
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, version+1)
		return tx.Bucket(versionsBucket).Put(versionKey(fingerprint, bucket), buf)
	})
}

// Compact removes every record that is expired or stranded behind a version
// bump. Meant for a periodic background sweep, not the request path.
func (s *SnapshotStore) Compact() (removed int, err error) {
	now := time.Now()
	err = s.db.Update(func(tx *bolt.Tx) error {
		snaps := tx.Bucket(snapshotsBucket)
		var stale [][]byte
		cur := snaps.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			var version uint64
			var fingerprint, bucket string
			if !parseSnapshotKey(k, &version, &fingerprint, &bucket) {
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			if version != readVersion(tx, fingerprint, bucket) {
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			var rec snapshotRecord
			if json.Unmarshal(v, &rec) != nil || now.Sub(rec.StoredAt) > s.ttl {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := snaps.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func versionKey(fingerprint, bucket string) []byte {
	return []byte(fingerprint + "|" + bucket)
}

func readVersion(tx *bolt.Tx, fingerprint, bucket string) uint64 {
	raw := tx.Bucket(versionsBucket).Get(versionKey(fingerprint, bucket))
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func snapshotKey(version uint64, fingerprint, bucket, prefix string) []byte {
	return []byte(fmt.Sprintf("v%d|%d|%s|%s|%s", snapshotSchema, version, fingerprint, bucket, prefix))
}

// parseSnapshotKey extracts the version, fingerprint and bucket from a record
// key. Keys from other schema versions fail to parse and get swept.
func parseSnapshotKey(k []byte, version *uint64, fingerprint, bucket *string) bool {
	parts := strings.SplitN(string(k), "|", 5)
	if len(parts) != 5 || parts[0] != fmt.Sprintf("v%d", snapshotSchema) {
		return false
	}
	v, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return false
	}
	*version = v
	*fingerprint = parts[2]
	*bucket = parts[3]
	return true
}
