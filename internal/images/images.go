// Package images resolves local image files to the SKUs and products
// they belong to.
package images

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// SKU extraction modes.
const (
	ModeStem   = "stem"   // whole filename without extension
	ModePrefix = "prefix" // leading [A-Za-z0-9-_]+ run of the stem
	ModeParent = "parent" // name of an ancestor directory
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

var (
	prefixRe  = regexp.MustCompile(`^[A-Za-z0-9-_]+`)
	skuNameRe = regexp.MustCompile(`^[A-Za-z0-9-_]+$`)
	suffixRe  = regexp.MustCompile(`[A-Za-z]+$`)
)

// IsImageFile reports whether the path has a recognized image extension.
func IsImageFile(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// ListImages returns every image file under dir, recursively, sorted.
func ListImages(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("images directory not found: %s", dir)
	}
	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ListImagesShallow returns image files directly inside dir, sorted.
func ListImagesShallow(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("images directory not found: %s", dir)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ExtractOptions tunes SKU extraction from a file path.
type ExtractOptions struct {
	Mode        string
	Regex       string // overrides Mode for filename-based extraction
	ImagesRoot  string // stops the upward walk in parent mode
	ParentDepth int    // fixed ancestor level in parent mode, 0 auto-walks
	ParentRegex string // folder-name pattern for the auto walk
}

// ExtractSKU derives the SKU a file belongs to. Returns empty when
// nothing matches.
func ExtractSKU(path string, opts ExtractOptions) string {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	if opts.Mode == ModeParent {
		return parentSKU(path, opts)
	}

	if opts.Regex != "" {
		re, err := regexp.Compile(opts.Regex)
		if err != nil {
			return ""
		}
		m := re.FindStringSubmatch(name)
		if m == nil {
			return ""
		}
		if len(m) > 1 {
			return m[1]
		}
		return m[0]
	}

	switch opts.Mode {
	case ModeStem:
		return stem
	case ModePrefix:
		return prefixRe.FindString(stem)
	}
	return ""
}

// parentSKU picks an ancestor directory name: either at a fixed depth,
// or by walking up from the file until a folder matches the pattern or
// the images root is reached.
func parentSKU(path string, opts ExtractOptions) string {
	if opts.ParentDepth > 0 {
		cur := path
		for i := 0; i < opts.ParentDepth; i++ {
			cur = filepath.Dir(cur)
		}
		return filepath.Base(cur)
	}

	pattern := opts.ParentRegex
	if pattern == "" {
		pattern = `^[A-Za-z0-9-_]+$`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return filepath.Base(filepath.Dir(path))
	}

	var stop string
	if opts.ImagesRoot != "" {
		if abs, err := filepath.Abs(opts.ImagesRoot); err == nil {
			stop = abs
		}
	}
	cur := filepath.Dir(path)
	for {
		abs, err := filepath.Abs(cur)
		if err == nil && stop != "" && abs == stop {
			break
		}
		if re.MatchString(filepath.Base(cur)) {
			return filepath.Base(cur)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return filepath.Base(filepath.Dir(path))
}

// BaseFromVariantSKU strips the trailing letter run (the size suffix)
// from a variant SKU, leaving the shared product base code.
func BaseFromVariantSKU(sku string) string {
	return suffixRe.ReplaceAllString(sku, "")
}

// DiscoverBaseFolders finds SKU-shaped directories under root. Depth 1
// takes root's immediate subdirectories; depth 2 takes the subfolders of
// each category folder. Results are sorted by folder name.
func DiscoverBaseFolders(root string, depth int) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("images directory not found: %s", root)
	}
	var bases []string
	if depth <= 1 {
		for _, e := range entries {
			if e.IsDir() && skuNameRe.MatchString(e.Name()) {
				bases = append(bases, filepath.Join(root, e.Name()))
			}
		}
	} else {
		for _, cat := range entries {
			if !cat.IsDir() {
				continue
			}
			subs, err := os.ReadDir(filepath.Join(root, cat.Name()))
			if err != nil {
				continue
			}
			for _, e := range subs {
				if e.IsDir() && skuNameRe.MatchString(e.Name()) {
					bases = append(bases, filepath.Join(root, cat.Name(), e.Name()))
				}
			}
		}
	}
	sort.Slice(bases, func(i, j int) bool {
		return filepath.Base(bases[i]) < filepath.Base(bases[j])
	})
	return bases, nil
}
