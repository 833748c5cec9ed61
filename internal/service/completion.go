package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/perfcore/perfcore/internal/cache"
	"github.com/perfcore/perfcore/internal/metrics"
	"github.com/perfcore/perfcore/pkg/types"
	"github.com/perfcore/perfcore/pkg/utils"
)

// CompletionProvider produces a completion for a prompt. Implementations
// wrap a model backend; the service never cares which one.
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) ([]byte, error)
}

// CompletionRequest identifies one completion call. All fields participate
// in the cache fingerprint, so two requests with the same fingerprint are
// interchangeable.
type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Params      map[string]string
}

// CompletionService is a read-through caching front for a completion
// provider. It is the reference consumer of the perfcore subsystem: the
// optimizer injects a cache and a monitor through the setter methods, and
// the service degrades to no-op implementations when nothing is injected.
type CompletionService struct {
	provider CompletionProvider
	ttl      time.Duration
	logger   *utils.StructuredLogger

	mu       sync.Mutex
	cacheSvc types.CacheService
	monitor  types.PerformanceMonitor
	recent   []string // most recently served fingerprints, newest first
}

// warmKeyLimit bounds the recent-fingerprint list.
const warmKeyLimit = 64

// NewCompletionService wraps provider. Responses are cached for ttl (zero
// means the cache default applies).
func NewCompletionService(provider CompletionProvider, ttl time.Duration, logger *utils.StructuredLogger) *CompletionService {
	if logger == nil {
		logger, _ = utils.NewStructuredLogger(nil)
	}
	return &CompletionService{
		provider: provider,
		ttl:      ttl,
		logger:   logger.WithComponent("completion"),
		cacheSvc: cache.NewNoop(),
		monitor:  metrics.NewNoop(),
	}
}

// SetCacheService injects the cache. A nil cache restores the no-op
// stand-in. Safe to call while Complete is in flight on another goroutine.
func (s *CompletionService) SetCacheService(c types.CacheService) {
	if c == nil {
		c = cache.NewNoop()
	}
	s.mu.Lock()
	s.cacheSvc = c
	s.mu.Unlock()
}

// SetPerformanceMonitor injects the monitor. A nil monitor restores the
// no-op stand-in.
func (s *CompletionService) SetPerformanceMonitor(m types.PerformanceMonitor) {
	if m == nil {
		m = metrics.NewNoop()
	}
	s.mu.Lock()
	s.monitor = m
	s.mu.Unlock()
}

// services returns the currently injected cache and monitor. In-flight
// calls keep using the pair they started with even if a re-injection lands
// mid-call.
func (s *CompletionService) services() (types.CacheService, types.PerformanceMonitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheSvc, s.monitor
}

// Complete returns the completion for req, serving from cache when an
// identical request was answered before. Provider failures are returned to
// the caller and never cached.
func (s *CompletionService) Complete(ctx context.Context, req CompletionRequest) ([]byte, error) {
	key := Fingerprint(s.provider.Name(), req)
	cacheSvc, monitor := s.services()

	start := time.Now()
	if value, ok := cacheSvc.Get(key); ok {
		monitor.Record("ai-call-cached", time.Since(start), int64(len(value)), true)
		s.remember(key)
		return value, nil
	}

	value, err := s.provider.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		monitor.Record("ai-call", elapsed, 0, false)
		s.logger.Warn("completion failed", map[string]interface{}{
			"model": req.Model,
			"error": err.Error(),
		})
		return nil, err
	}

	monitor.Record("ai-call", elapsed, int64(len(value)), true)

	if s.ttl > 0 {
		cacheSvc.SetWithTTL(key, value, s.ttl)
	} else {
		cacheSvc.Set(key, value)
	}
	s.remember(key)
	return value, nil
}

// WarmKeys returns up to n of the most recently served fingerprints, newest
// first, for preload decisions.
func (s *CompletionService) WarmKeys(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || len(s.recent) == 0 {
		return nil
	}
	if n > len(s.recent) {
		n = len(s.recent)
	}
	keys := make([]string, n)
	copy(keys, s.recent[:n])
	return keys
}

func (s *CompletionService) remember(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, k := range s.recent {
		if k == key {
			copy(s.recent[1:i+1], s.recent[:i])
			s.recent[0] = key
			return
		}
	}

	s.recent = append(s.recent, "")
	copy(s.recent[1:], s.recent)
	s.recent[0] = key
	if len(s.recent) > warmKeyLimit {
		s.recent = s.recent[:warmKeyLimit]
	}
}

// Invalidate drops the cached response for req, forcing the next Complete
// to hit the provider.
func (s *CompletionService) Invalidate(req CompletionRequest) {
	cacheSvc, _ := s.services()
	cacheSvc.Invalidate(Fingerprint(s.provider.Name(), req))
}

// Fingerprint derives the deterministic cache key for a request. Provider
// name, model, prompt, sampling settings, and extra params all contribute;
// params are hashed in sorted key order so map iteration cannot change the
// key.
func Fingerprint(provider string, req CompletionRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%g|%d", provider, req.Model, req.Prompt, req.Temperature, req.MaxTokens)

	if len(req.Params) > 0 {
		keys := make([]string, 0, len(req.Params))
		for k := range req.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "|%s=%s", k, req.Params[k])
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
