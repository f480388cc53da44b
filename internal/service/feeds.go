package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/campuslink/commons/internal/cache"
	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/internal/storage"
)

// TrendingCache holds the shared, unfiltered trending window.
// *cache.Cache satisfies it.
type TrendingCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// FeedParams pages the newest-first feed. Before and BeforeID are the
// createdAt and id of the last post of the previous page.
type FeedParams struct {
	Limit    int
	Before   *time.Time
	BeforeID string
}

// Feed returns the newest posts visible to actor
func (s *PostService) Feed(ctx context.Context, actor Actor, params FeedParams) ([]*PostView, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = s.feed.PageSize
	}
	if limit > s.feed.MaxPageSize {
		limit = s.feed.MaxPageSize
	}

	posts, err := s.posts.ListPosts(ctx, storage.PostQuery{
		ExcludeAuthors: actor.BlockedUsers,
		Order:          storage.OrderNewest,
		Limit:          limit,
		Before:         params.Before,
		BeforeID:       params.BeforeID,
	})
	if err != nil {
		return nil, fromStorage(err, "posts")
	}
	return newPostViews(actor.visibility().FilterPosts(posts), actor), nil
}

// Trending ranks posts by likes, newest first among equals, hiding blocked authors
func (s *PostService) Trending(ctx context.Context, actor Actor) ([]*PostView, error) {
	window, err := s.trendingWindow(ctx)
	if err != nil {
		return nil, err
	}

	visible := actor.visibility().FilterPosts(window)
	if len(visible) < s.feed.TrendingLimit && len(window) >= s.feed.TrendingWindow {
		// The block-list thinned the shared window below the limit
		visible, err = s.posts.ListPosts(ctx, storage.PostQuery{
			ExcludeAuthors: actor.BlockedUsers,
			Order:          storage.OrderTrending,
			Limit:          s.feed.TrendingLimit,
		})
		if err != nil {
			return nil, fromStorage(err, "posts")
		}
	}
	if len(visible) > s.feed.TrendingLimit {
		visible = visible[:s.feed.TrendingLimit]
	}
	return newPostViews(visible, actor), nil
}

// Mine returns actor's own posts newest first
func (s *PostService) Mine(ctx context.Context, actor Actor) ([]*PostView, error) {
	posts, err := s.posts.ListPosts(ctx, storage.PostQuery{
		AuthorID: actor.ID,
		Order:    storage.OrderNewest,
	})
	if err != nil {
		return nil, fromStorage(err, "posts")
	}
	return newPostViews(posts, actor), nil
}

func (s *PostService) trendingKey() string {
	return cache.HashKey("trending", strconv.Itoa(s.feed.TrendingWindow))
}

// trendingWindow returns the unfiltered top of the trending order,
// served from Redis when possible. Block filtering happens after.
func (s *PostService) trendingWindow(ctx context.Context) ([]*models.Post, error) {
	key := s.trendingKey()

	if s.cache != nil {
		var cached []*models.Post
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheDisabled) && !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Trending cache read failed", zap.Error(err))
		}
	}

	posts, err := s.posts.ListPosts(ctx, storage.PostQuery{
		Order: storage.OrderTrending,
		Limit: s.feed.TrendingWindow,
	})
	if err != nil {
		return nil, fromStorage(err, "posts")
	}

	if s.cache != nil && s.feed.TrendingCacheTTL > 0 {
		if err := s.cache.SetJSON(ctx, key, posts, s.feed.TrendingCacheTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
			s.logger.Warn("Trending cache write failed", zap.Error(err))
		}
	}
	return posts, nil
}

// invalidateTrending drops the cached window. The window holds whole
// posts, so every change to a post or its thread invalidates it.
func (s *PostService) invalidateTrending(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.trendingKey()); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Trending cache invalidation failed", zap.Error(err))
	}
}
