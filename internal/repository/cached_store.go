package repository

import (
	"context"
	"errors"
	"time"

	"SynthFeed/internal/domain/models"
	domrepo "SynthFeed/internal/domain/repository"
	"SynthFeed/pkg/cache"
	applogger "SynthFeed/pkg/logger"
)

// CachedStore consults a shared window cache before reading the wrapped
// store. Cache failures fall through to the store.
type CachedStore struct {
	domrepo.RowStore
	cache   cache.Service
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	l       *applogger.Logger
}

// NewCachedStore wraps store; id must identify the dataset across processes.
func NewCachedStore(store domrepo.RowStore, c cache.Service, id string, ttl time.Duration) *CachedStore {
	return &CachedStore{
		RowStore: store,
		cache:    c,
		prefix:   "window:" + cache.HashKey(id),
		ttl:      ttl,
		timeout:  2 * time.Second,
		l:        applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (s *CachedStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CachedStore) ReadWindow(start, end int) (*models.RowBlock, error) {
	if end > s.Len() {
		end = s.Len()
	}
	key := cache.GenerateKeyWithParams(s.prefix, start, end)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var blk models.RowBlock
	err := s.cache.Get(ctx, key, &blk)
	switch {
	case err == nil && blk.Start == start && blk.Len() == end-start:
		return &blk, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		s.l.Warn("window cache get failed", applogger.String("key", key), applogger.Error(err))
	}

	out, err := s.RowStore.ReadWindow(start, end)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, out, s.ttl); err != nil {
		s.l.Warn("window cache set failed", applogger.String("key", key), applogger.Error(err))
	}
	return out, nil
}

// Invalidate drops every cached window of the dataset.
func (s *CachedStore) Invalidate(ctx context.Context) error {
	return s.cache.DeleteByPattern(ctx, cache.BuildPattern(s.prefix+":"))
}

var _ domrepo.RowStore = (*CachedStore)(nil)
