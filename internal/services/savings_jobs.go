package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/damacus/delta-commander/internal/cache"
	"github.com/damacus/delta-commander/internal/deltaglider"
)

// SavingsJob describes one background stats computation.
type SavingsJob struct {
	ID        string    `json:"id"`
	Bucket    string    `json:"bucket"`
	StartedAt time.Time `json:"started_at"`
}

// SavingsJobs runs bucket savings computations in the background, at most
// one per bucket at a time. Results land in the shared savings cache;
// callers poll the bucket listing to observe them.
type SavingsJobs struct {
	caches  *cache.Registry
	timeout time.Duration

	mu      sync.Mutex
	running map[string]SavingsJob
}

func NewSavingsJobs(caches *cache.Registry) *SavingsJobs {
	return &SavingsJobs{
		caches:  caches,
		timeout: 10 * time.Minute,
		running: make(map[string]SavingsJob),
	}
}

// Start schedules a detailed stats walk for the bucket and returns the job.
// A second Start while the first is still running returns the running job
// instead of spawning another walk over the same bucket.
func (s *SavingsJobs) Start(store deltaglider.Store, bucket string, mode deltaglider.StatsMode) (SavingsJob, bool) {
	s.mu.Lock()
	if job, ok := s.running[bucket]; ok {
		s.mu.Unlock()
		return job, false
	}
	job := SavingsJob{ID: uuid.NewString(), Bucket: bucket, StartedAt: time.Now().UTC()}
	s.running[bucket] = job
	s.mu.Unlock()

	s.caches.MarkPending(bucket)
	go s.run(store, bucket, mode)
	return job, true
}

// Running reports the in-flight job for a bucket, if any.
func (s *SavingsJobs) Running(bucket string) (SavingsJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.running[bucket]
	return job, ok
}

func (s *SavingsJobs) run(store deltaglider.Store, bucket string, mode deltaglider.StatsMode) {
	defer func() {
		s.mu.Lock()
		delete(s.running, bucket)
		s.mu.Unlock()
		s.caches.ClearPending(bucket)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	snap, err := store.ComputeBucketStats(ctx, bucket, mode)
	if err != nil {
		// The stale cached snapshot, if any, stays; a failed walk never
		// degrades what the UI already shows.
		log.Printf("savings: computing stats for %s failed: %v", bucket, err)
		return
	}
	now := time.Now().UTC()
	snap.ComputedAt = &now
	s.caches.Savings.Set(bucket, snap)
}

// Pending reports whether a computation for the bucket is in flight.
func (s *SavingsJobs) Pending(bucket string) bool {
	return s.caches.IsPending(bucket)
}

// Cached returns the cached savings snapshot for a bucket.
func (s *SavingsJobs) Cached(bucket string) (deltaglider.BucketSnapshot, bool) {
	return s.caches.Savings.Get(bucket)
}
