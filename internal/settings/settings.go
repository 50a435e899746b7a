// Package settings keeps operator-editable runtime settings in a JSON
// file, merged over defaults on every read.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Settings holds the knobs the operator can change without restarting.
// Request parameters still win over these per job.
type Settings struct {
	DefaultQty            int     `json:"default_qty"`
	DefaultGrams          int     `json:"default_grams"`
	LLMEnableDefault      bool    `json:"llm_enable_default"`
	LLMPreferDefault      bool    `json:"llm_prefer_default"`
	LLMMaxProductsDefault int     `json:"llm_max_products_default"`
	ImagesDelayDefault    float64 `json:"images_delay_default"`
	ShopifyStore          string  `json:"shopify_store"`
	ShopifyAPIVersion     string  `json:"shopify_api_version"`
	ShopifyAccessToken    string  `json:"shopify_access_token"`
	BrandStripValue       string  `json:"brand_strip_value"`
	BrandName             string  `json:"brand_name"`
	BrandAudience         string  `json:"brand_audience"`
	VendorName            string  `json:"vendor_name"`
}

// Defaults returns the baseline settings.
func Defaults() Settings {
	return Settings{
		DefaultQty:         50,
		DefaultGrams:       400,
		ImagesDelayDefault: 0.5,
		ShopifyAPIVersion:  "2024-07",
		BrandStripValue:    "zummer",
		BrandName:          "Zummer",
		BrandAudience:      "Modern Indian women, 25-35",
		VendorName:         "Zummer",
	}
}

// Store reads and writes the settings file. Safe for concurrent use.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store at path and seeds the file with defaults if
// it does not exist yet.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.Save(Defaults()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns the saved settings merged over defaults; a missing or
// corrupt file yields the defaults.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Defaults()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return Defaults()
	}
	return out
}

// Save writes the settings atomically.
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
