package listing

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

const (
	// MaxCountPrefixes caps how many directories one sweep will sample.
	MaxCountPrefixes = 50
	// CountSampleLimit bounds the listing used to estimate a directory.
	CountSampleLimit = 100
	// countInterval spaces successive prefix samples.
	countInterval = 100 * time.Millisecond
	// sweepTimeout bounds one background sweep end to end.
	sweepTimeout = 2 * time.Minute
)

// CountsCache stores sampled directory counts keyed by bucket|prefix.
// The shared cache registry satisfies it.
type CountsCache interface {
	Get(key string) (DirectoryCounts, bool)
	Set(key string, counts DirectoryCounts)
}

// CountsKey builds the cache key for a sampled prefix.
func CountsKey(bucket, prefix string) string {
	return bucket + "|" + prefix
}

// CountsSidecar samples direct child counts for directory prefixes in
// the background. Sweeps are strictly sequential and paced so the
// sampling never competes with interactive listing traffic. Starting a
// new sweep cancels the previous one.
type CountsSidecar struct {
	lister  Lister
	cache   CountsCache
	limiter *rate.Limiter

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewCountsSidecar(lister Lister, cache CountsCache) *CountsSidecar {
	return &CountsSidecar{
		lister:  lister,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(countInterval), 1),
	}
}

// Kick starts a background sweep over prefixes under bucket. Any sweep
// already in flight is cancelled first; stale samples for directories
// the user has navigated away from are not worth finishing.
//
// The sweep runs on its own context rather than the caller's: the server
// cancels a request context the moment the handler returns, and the sweep
// must outlive the request that kicked it.
func (s *CountsSidecar) Kick(bucket string, prefixes []string) {
	if len(prefixes) > MaxCountPrefixes {
		prefixes = prefixes[:MaxCountPrefixes]
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	sweepCtx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		s.sweep(sweepCtx, bucket, prefixes)
	}()
}

// Stop cancels any in-flight sweep.
func (s *CountsSidecar) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Counts returns the cached sample for a prefix, if one exists.
func (s *CountsSidecar) Counts(bucket, prefix string) (DirectoryCounts, bool) {
	return s.cache.Get(CountsKey(bucket, prefix))
}

func (s *CountsSidecar) sweep(ctx context.Context, bucket string, prefixes []string) {
	for _, prefix := range prefixes {
		if _, ok := s.cache.Get(CountsKey(bucket, prefix)); ok {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		counts, err := s.sample(ctx, bucket, prefix)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// One unreadable directory should not starve the rest of
			// the sweep of their counts.
			log.Printf("counts: sampling %s/%s failed: %v", bucket, prefix, err)
			continue
		}
		s.cache.Set(CountsKey(bucket, prefix), counts)
	}
}

func (s *CountsSidecar) sample(ctx context.Context, bucket, prefix string) (DirectoryCounts, error) {
	res, err := s.lister.ListObjects(ctx, bucket, prefix, deltaglider.ListOptions{
		Limit: CountSampleLimit,
	})
	if err != nil {
		return DirectoryCounts{}, err
	}
	return DirectoryCounts{
		Files:   len(res.Objects),
		Folders: len(res.CommonPrefixes),
		HasMore: res.NextCursor != "",
	}, nil
}
