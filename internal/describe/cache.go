package describe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores generated Body (HTML) keyed by product handle. Both
// methods are best effort: a broken cache degrades to regeneration,
// never to a failed job.
type Cache interface {
	Get(ctx context.Context, handle string) (string, bool)
	Put(ctx context.Context, handle, html string)
}

// FileCache keeps one HTML file per handle under a directory.
type FileCache struct {
	Dir string
}

func NewFileCache(dir string) *FileCache {
	return &FileCache{Dir: dir}
}

func (c *FileCache) path(handle string) string {
	return filepath.Join(c.Dir, handle+".html")
}

func (c *FileCache) Get(_ context.Context, handle string) (string, bool) {
	data, err := os.ReadFile(c.path(handle))
	if err != nil {
		return "", false
	}
	html := strings.TrimSpace(string(data))
	return html, html != ""
}

// Put replaces the cached entry atomically so a concurrent Get never
// sees a partial file.
func (c *FileCache) Put(_ context.Context, handle, html string) {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return
	}
	tmp, err := os.CreateTemp(c.Dir, "."+handle+"-*")
	if err != nil {
		return
	}
	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return
	}
	if err := os.Rename(tmp.Name(), c.path(handle)); err != nil {
		os.Remove(tmp.Name())
	}
}

// RedisCache stores entries under a key prefix with a TTL. Useful when
// several service instances share one description cache.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisCache{client: client, prefix: "describe:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, handle string) (string, bool) {
	val, err := c.client.Get(ctx, c.prefix+handle).Result()
	if err != nil || strings.TrimSpace(val) == "" {
		return "", false
	}
	return val, true
}

func (c *RedisCache) Put(ctx context.Context, handle, html string) {
	c.client.Set(ctx, c.prefix+handle, html, c.ttl)
}
