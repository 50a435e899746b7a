package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSKUStem(t *testing.T) {
	sku := ExtractSKU("/imgs/ZM101S.jpg", ExtractOptions{Mode: ModeStem})
	assert.Equal(t, "ZM101S", sku)
}

func TestExtractSKUPrefix(t *testing.T) {
	sku := ExtractSKU("/imgs/ZM101S (front).jpg", ExtractOptions{Mode: ModePrefix})
	assert.Equal(t, "ZM101S", sku)
}

func TestExtractSKURegex(t *testing.T) {
	opts := ExtractOptions{Mode: ModeStem, Regex: `sku-([A-Z0-9]+)`}
	assert.Equal(t, "ZM101", ExtractSKU("/imgs/sku-ZM101_front.jpg", opts))
	assert.Equal(t, "", ExtractSKU("/imgs/front.jpg", opts))
}

func TestExtractSKUParentDepth(t *testing.T) {
	opts := ExtractOptions{Mode: ModeParent, ParentDepth: 1}
	assert.Equal(t, "ZM101", ExtractSKU("/imgs/ZM101/front.jpg", opts))

	opts.ParentDepth = 2
	assert.Equal(t, "ZM101", ExtractSKU("/imgs/ZM101/angles/front.jpg", opts))
}

func TestExtractSKUParentWalk(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "dresses", "ZM101", "extra dir!", "front.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	sku := ExtractSKU(file, ExtractOptions{Mode: ModeParent, ImagesRoot: root})
	assert.Equal(t, "ZM101", sku)
}

func TestBaseFromVariantSKU(t *testing.T) {
	assert.Equal(t, "ZM101", BaseFromVariantSKU("ZM101S"))
	assert.Equal(t, "ZM101", BaseFromVariantSKU("ZM101XL"))
	assert.Equal(t, "ZM101-", BaseFromVariantSKU("ZM101-XS"))
	assert.Equal(t, "", BaseFromVariantSKU(""))
}

func TestListImagesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.PNG", "notes.txt", "c.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "d.jpeg"), []byte("x"), 0o644))

	files, err := ListImages(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)

	shallow, err := ListImagesShallow(dir)
	require.NoError(t, err)
	assert.Len(t, shallow, 3)
}

func TestDiscoverBaseFolders(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"ZM102", "ZM101", "bad name!", "dresses/ZM201"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, p), 0o755))
	}

	depth1, err := DiscoverBaseFolders(root, 1)
	require.NoError(t, err)
	var names []string
	for _, d := range depth1 {
		names = append(names, filepath.Base(d))
	}
	assert.Equal(t, []string{"ZM101", "ZM102", "dresses"}, names)

	depth2, err := DiscoverBaseFolders(root, 2)
	require.NoError(t, err)
	names = names[:0]
	for _, d := range depth2 {
		names = append(names, filepath.Base(d))
	}
	assert.Equal(t, []string{"ZM201"}, names)
}
