package describe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheRoundTrip(t *testing.T) {
	cache := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	ctx := context.Background()

	_, ok := cache.Get(ctx, "missing")
	assert.False(t, ok)

	cache.Put(ctx, "floral-dress-5225", "<p>hello</p>")
	html, ok := cache.Get(ctx, "floral-dress-5225")
	require.True(t, ok)
	assert.Equal(t, "<p>hello</p>", html)

	// replace leaves no temp files behind
	cache.Put(ctx, "floral-dress-5225", "<p>updated</p>")
	html, ok = cache.Get(ctx, "floral-dress-5225")
	require.True(t, ok)
	assert.Equal(t, "<p>updated</p>", html)

	entries, err := os.ReadDir(cache.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "floral-dress-5225.html", entries[0].Name())
}

func TestFileCacheEmptyEntryIsMiss(t *testing.T) {
	cache := NewFileCache(t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(cache.Dir, "blank.html"), []byte("  \n"), 0o644))

	_, ok := cache.Get(context.Background(), "blank")
	assert.False(t, ok)
}
