package lyrics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SearchCache abstracts the two caches the lyric provider keeps: search
// results keyed by (title, artist), and resolved lyric text keyed by song
// id.
type SearchCache interface {
	GetSearch(ctx context.Context, key string) ([]LyricCandidate, bool)
	SetSearch(ctx context.Context, key string, hits []LyricCandidate)
	GetLyrics(ctx context.Context, songID string) (string, bool)
	SetLyrics(ctx context.Context, songID string, text string)
}

// LyricCandidate mirrors ports.LyricCandidate for this package's internal
// cache encoding.
type LyricCandidate struct {
	ID     string
	Title  string
	Artist string
	URL    string
	Score  float64
}

// InProcessCache is the default SearchCache: two independent in-memory LRU
// caches, one for search result sets and one for resolved lyric text.
type InProcessCache struct {
	mu       sync.Mutex
	searches *lruCache
	lyrics   *lruCache
}

func NewInProcessCache(capacity int) *InProcessCache {
	return &InProcessCache{
		searches: newLRUCache(capacity),
		lyrics:   newLRUCache(capacity),
	}
}

func (c *InProcessCache) GetSearch(_ context.Context, key string) ([]LyricCandidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.searches.Get(key)
	if !ok {
		return nil, false
	}
	var hits []LyricCandidate
	if err := json.Unmarshal([]byte(raw), &hits); err != nil {
		return nil, false
	}
	return hits, true
}

func (c *InProcessCache) SetSearch(_ context.Context, key string, hits []LyricCandidate) {
	raw, err := json.Marshal(hits)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches.Set(key, string(raw))
}

func (c *InProcessCache) GetLyrics(_ context.Context, songID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lyrics.Get(songID)
}

func (c *InProcessCache) SetLyrics(_ context.Context, songID string, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lyrics.Set(songID, text)
}

// RedisCache is the distributed alternative, for deployments running
// multiple pipeline instances that should share a lyric-search cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetSearch(ctx context.Context, key string) ([]LyricCandidate, bool) {
	raw, err := c.client.Get(ctx, "lyrics:search:"+key).Result()
	if err != nil {
		return nil, false
	}
	var hits []LyricCandidate
	if err := json.Unmarshal([]byte(raw), &hits); err != nil {
		return nil, false
	}
	return hits, true
}

func (c *RedisCache) SetSearch(ctx context.Context, key string, hits []LyricCandidate) {
	raw, err := json.Marshal(hits)
	if err != nil {
		return
	}
	c.client.Set(ctx, "lyrics:search:"+key, raw, c.ttl)
}

func (c *RedisCache) GetLyrics(ctx context.Context, songID string) (string, bool) {
	text, err := c.client.Get(ctx, "lyrics:text:"+songID).Result()
	if err != nil {
		return "", false
	}
	return text, true
}

func (c *RedisCache) SetLyrics(ctx context.Context, songID string, text string) {
	c.client.Set(ctx, "lyrics:text:"+songID, text, c.ttl)
}
