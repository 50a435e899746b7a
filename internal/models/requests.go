package models

import "fmt"

// TransformRequest configures one transform job. Validated once at
// submission; the pipeline never reads configuration ad hoc mid-run.
type TransformRequest struct {
	FileID          string `json:"file_id" binding:"required"`
	DefaultQty      int    `json:"default_qty"`
	DefaultGrams    int    `json:"default_grams"`
	LLMEnable       bool   `json:"llm_enable"`
	LLMPrefer       bool   `json:"llm_prefer"`
	LLMRefresh      bool   `json:"llm_refresh"`
	LLMMaxProducts  int    `json:"llm_max_products"`
	BrandStrip      string `json:"brand_strip"`
	CacheDir        string `json:"cache_dir"`
	VariantQtyBlank bool   `json:"variant_qty_blank"`
}

// Validate checks the request at job creation time.
func (r *TransformRequest) Validate() error {
	if r.FileID == "" {
		return fmt.Errorf("file_id is required")
	}
	if r.DefaultQty < 0 {
		return fmt.Errorf("default_qty must be >= 0")
	}
	if r.DefaultGrams < 0 {
		return fmt.Errorf("default_grams must be >= 0")
	}
	if r.LLMMaxProducts < 0 {
		return fmt.Errorf("llm_max_products must be >= 0")
	}
	return nil
}

// ImageBySkuRequest previews SKU extraction over an images directory
// without touching Shopify (dry run).
type ImageBySkuRequest struct {
	ImagesDir   string `json:"images_dir" binding:"required"`
	SkuMode     string `json:"sku_mode"` // stem|prefix|parent
	SkuRegex    string `json:"sku_regex"`
	ParentDepth int    `json:"parent_depth"`
	ParentRegex string `json:"parent_regex"`
}

// ImageBySkuUploadRequest uploads every image under a directory to the
// product owning the variant whose SKU is derived from the file path.
type ImageBySkuUploadRequest struct {
	ImagesDir     string  `json:"images_dir" binding:"required"`
	SkuMode       string  `json:"sku_mode"`
	SkuRegex      string  `json:"sku_regex"`
	ParentDepth   int     `json:"parent_depth"`
	ParentRegex   string  `json:"parent_regex"`
	MatchMultiple string  `json:"match_multiple"` // first|all
	LinkToVariant bool    `json:"link_to_variant"`
	AltFrom       string  `json:"alt_from"` // none|stem
	Delay         float64 `json:"delay"`
}

// ImageByBaseUploadRequest uploads per-folder image sets, matching each
// base folder name against variant SKU prefixes.
type ImageByBaseUploadRequest struct {
	ImagesDir         string   `json:"images_dir" binding:"required"`
	BasesDepth        int      `json:"bases_depth"` // 1 or 2
	Bases             []string `json:"bases,omitempty"`
	LimitBases        int      `json:"limit_bases"`
	OffsetBases       int      `json:"offset_bases"`
	LimitFilesPerBase int      `json:"limit_files_per_base"`
	OneLevel          bool     `json:"one_level"`
	OnlyEmptyProducts bool     `json:"only_empty_products"`
	LinkToVariant     bool     `json:"link_to_variant"`
	AltFrom           string   `json:"alt_from"`
	Delay             float64  `json:"delay"`
}

// StagedFile describes one file the browser wants to upload directly.
type StagedFile struct {
	Filename string `json:"filename" binding:"required"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// StagedAttachItem associates one already-staged upload with a product.
type StagedAttachItem struct {
	Filename    string `json:"filename"`
	ResourceURL string `json:"resourceUrl" binding:"required"`
	Sku         string `json:"sku,omitempty"`
	Alt         string `json:"alt,omitempty"`
	ProductID   int64  `json:"product_id,omitempty"`
	VariantID   int64  `json:"variant_id,omitempty"`
}

// StagedAttachRequest attaches staged uploads to products by SKU.
type StagedAttachRequest struct {
	Items         []StagedAttachItem `json:"items" binding:"required"`
	MatchMultiple string             `json:"match_multiple"`
	LinkToVariant bool               `json:"link_to_variant"`
	Delay         float64            `json:"delay"`
}
