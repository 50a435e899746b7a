package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreSeedsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	s := store.Get()
	assert.Equal(t, 50, s.DefaultQty)
	assert.Equal(t, 400, s.DefaultGrams)
	assert.Equal(t, "zummer", s.BrandStripValue)
	assert.Equal(t, "2024-07", s.ShopifyAPIVersion)
	assert.Equal(t, 0.5, s.ImagesDelayDefault)
}

func TestStoreSaveRoundTrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	s := store.Get()
	s.DefaultQty = 10
	s.ShopifyStore = "example.myshopify.com"
	s.LLMPreferDefault = true
	require.NoError(t, store.Save(s))

	got := store.Get()
	assert.Equal(t, 10, got.DefaultQty)
	assert.Equal(t, "example.myshopify.com", got.ShopifyStore)
	assert.True(t, got.LLMPreferDefault)
	// untouched fields keep their values
	assert.Equal(t, 400, got.DefaultGrams)
}

func TestStoreCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := store.Get()
	assert.Equal(t, 50, s.DefaultQty)
}
