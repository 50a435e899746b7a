package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopify-feed-service/internal/clients"
	"shopify-feed-service/internal/config"
	"shopify-feed-service/internal/engine"
	"shopify-feed-service/internal/images"
	"shopify-feed-service/internal/models"
	"shopify-feed-service/internal/settings"
)

// ImagesHandler queues image jobs against the configured Shopify store.
type ImagesHandler struct {
	engine   *engine.Engine
	cfg      *config.Config
	settings *settings.Store
	shopify  *clients.ShopifyClient
}

func NewImagesHandler(eng *engine.Engine, cfg *config.Config, store *settings.Store, shopify *clients.ShopifyClient) *ImagesHandler {
	return &ImagesHandler{engine: eng, cfg: cfg, settings: store, shopify: shopify}
}

// requireShopify resolves the client for this request: operator-saved
// settings take precedence over environment credentials.
func (h *ImagesHandler) requireShopify(c *gin.Context) (*clients.ShopifyClient, bool) {
	client := h.shopify
	if s := h.settings.Get(); s.ShopifyStore != "" && s.ShopifyAccessToken != "" {
		client = clients.NewShopifyClientFromValues(s.ShopifyStore, s.ShopifyAccessToken, s.ShopifyAPIVersion)
	}
	if !client.Configured() {
		respondError(c, http.StatusBadRequest, "SHOPIFY_NOT_CONFIGURED", "shopify store credentials are not configured")
		return nil, false
	}
	return client, true
}

func (h *ImagesHandler) delayOrDefault(delay float64) time.Duration {
	if delay <= 0 {
		delay = h.settings.Get().ImagesDelayDefault
	}
	return time.Duration(delay * float64(time.Second))
}

// writeResultLines stores per-item outcomes as the job artifact, one
// line per processed file.
func writeResultLines(resultsDir, jobID string, lines []string) (string, error) {
	path := filepath.Join(resultsDir, jobID+".txt")
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(resultsDir, ".result-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

func extractOptions(mode, regex string, parentDepth int, parentRegex, root string) images.ExtractOptions {
	if mode == "" {
		mode = images.ModeStem
	}
	return images.ExtractOptions{
		Mode:        mode,
		Regex:       regex,
		ImagesRoot:  root,
		ParentDepth: parentDepth,
		ParentRegex: parentRegex,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// CreateBySku queues a dry-run preview: which SKU each file resolves to
// and what an upload would do. No Shopify calls are made.
// POST /jobs/images/by-sku
func (h *ImagesHandler) CreateBySku(c *gin.Context) {
	var req models.ImageBySkuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	params := models.JSON{"images_dir": req.ImagesDir, "sku_mode": req.SkuMode, "dry_run": true}
	resultsDir := h.cfg.ResultsDir

	job, err := h.engine.Submit(c.Request.Context(), models.JobKindImagesBySku, params, func(jc *engine.JobContext) (string, error) {
		files, err := images.ListImages(req.ImagesDir)
		if err != nil {
			return "", err
		}
		opts := extractOptions(req.SkuMode, req.SkuRegex, req.ParentDepth, req.ParentRegex, req.ImagesDir)

		var lines []string
		for _, path := range files {
			jc.Inc("files", 1)
			sku := images.ExtractSKU(path, opts)
			if sku == "" {
				jc.Inc("skipped", 1)
				lines = append(lines, path+" -> skip:no-sku")
				continue
			}
			jc.Inc("would_upload", 1)
			lines = append(lines, fmt.Sprintf("%s -> dry-run:would-upload sku=%s", path, sku))
		}
		return writeResultLines(resultsDir, jc.JobID(), lines)
	})
	if err != nil {
		h.submitError(c, err)
		return
	}
	respondData(c, http.StatusAccepted, job)
}

// CreateBySkuUpload queues real uploads: each file goes to the product
// owning the variant whose SKU the file path yields.
// POST /jobs/images/by-sku/upload
func (h *ImagesHandler) CreateBySkuUpload(c *gin.Context) {
	var req models.ImageBySkuUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	shopify, ok := h.requireShopify(c)
	if !ok {
		return
	}

	params := models.JSON{"images_dir": req.ImagesDir, "sku_mode": req.SkuMode, "link_to_variant": req.LinkToVariant}
	resultsDir := h.cfg.ResultsDir
	delay := h.delayOrDefault(req.Delay)

	job, err := h.engine.Submit(c.Request.Context(), models.JobKindImagesBySkuUpload, params, func(jc *engine.JobContext) (string, error) {
		files, err := images.ListImages(req.ImagesDir)
		if err != nil {
			return "", err
		}
		opts := extractOptions(req.SkuMode, req.SkuRegex, req.ParentDepth, req.ParentRegex, req.ImagesDir)

		var lines []string
		for _, path := range files {
			jc.Inc("files", 1)
			sku := images.ExtractSKU(path, opts)
			if sku == "" {
				jc.Inc("skipped", 1)
				lines = append(lines, path+" -> skip:no-sku")
				continue
			}

			variants, err := shopify.FindVariantsBySKU(jc.Context(), sku)
			if err != nil {
				jc.Inc("failed_items", 1)
				lines = append(lines, fmt.Sprintf("%s -> error:lookup-failed sku=%s reason=%v", path, sku, err))
				continue
			}
			if len(variants) == 0 {
				jc.Inc("failed_items", 1)
				lines = append(lines, fmt.Sprintf("%s -> error:no-variant-for-sku:%s", path, sku))
				continue
			}
			if req.MatchMultiple != "all" {
				variants = variants[:1]
			}

			data, err := os.ReadFile(path)
			if err != nil {
				jc.Inc("failed_items", 1)
				lines = append(lines, fmt.Sprintf("%s -> error:read-failed reason=%v", path, err))
				continue
			}
			encoded := base64.StdEncoding.EncodeToString(data)

			seen := make(map[int64]bool, len(variants))
			for _, v := range variants {
				if seen[v.ProductID] {
					continue
				}
				seen[v.ProductID] = true

				attachment := clients.ImageAttachment{
					Attachment: encoded,
					Filename:   filepath.Base(path),
				}
				if req.AltFrom == "stem" {
					attachment.Alt = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				}
				if req.LinkToVariant {
					attachment.VariantIDs = []int64{v.ID}
				}

				if _, err := shopify.UploadProductImage(jc.Context(), v.ProductID, attachment); err != nil {
					jc.Inc("failed_items", 1)
					lines = append(lines, fmt.Sprintf("%s -> error:upload-failed sku=%s reason=%v", path, sku, err))
					continue
				}
				jc.Inc("uploaded", 1)
				lines = append(lines, fmt.Sprintf("%s -> ok:uploaded sku=%s product_id=%d", path, sku, v.ProductID))
				sleepCtx(jc.Context(), delay)
			}
		}

		return finishUploadJob(jc, resultsDir, lines)
	})
	if err != nil {
		h.submitError(c, err)
		return
	}
	respondData(c, http.StatusAccepted, job)
}

// finishUploadJob writes the result artifact and applies the partial
// failure rule: a batch with at least one successful item succeeds,
// a batch where everything failed does not.
func finishUploadJob(jc *engine.JobContext, resultsDir string, lines []string) (string, error) {
	path, err := writeResultLines(resultsDir, jc.JobID(), lines)
	if err != nil {
		return "", err
	}
	counters := jc.Counters()
	if counters["failed_items"] > 0 && counters["uploaded"]+counters["attached"] == 0 {
		return "", fmt.Errorf("all %d items failed", counters["failed_items"])
	}
	return path, nil
}

// CreateByBaseUpload queues folder-per-product uploads: each base folder
// name is matched against variant SKU prefixes across the catalog.
// POST /jobs/images/by-base/upload
func (h *ImagesHandler) CreateByBaseUpload(c *gin.Context) {
	var req models.ImageByBaseUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	shopify, ok := h.requireShopify(c)
	if !ok {
		return
	}

	params := models.JSON{"images_dir": req.ImagesDir, "bases_depth": req.BasesDepth, "only_empty_products": req.OnlyEmptyProducts}
	resultsDir := h.cfg.ResultsDir
	delay := h.delayOrDefault(req.Delay)

	job, err := h.engine.Submit(c.Request.Context(), models.JobKindImagesByBaseUpload, params, func(jc *engine.JobContext) (string, error) {
		bases, err := images.DiscoverBaseFolders(req.ImagesDir, req.BasesDepth)
		if err != nil {
			return "", err
		}
		if len(req.Bases) > 0 {
			wanted := make(map[string]bool, len(req.Bases))
			for _, b := range req.Bases {
				wanted[b] = true
			}
			var kept []string
			for _, dir := range bases {
				if wanted[filepath.Base(dir)] {
					kept = append(kept, dir)
				}
			}
			bases = kept
		}
		if req.OffsetBases > 0 && req.OffsetBases < len(bases) {
			bases = bases[req.OffsetBases:]
		} else if req.OffsetBases >= len(bases) {
			bases = nil
		}
		if req.LimitBases > 0 && len(bases) > req.LimitBases {
			bases = bases[:req.LimitBases]
		}
		jc.Set("bases", int64(len(bases)))

		products, err := shopify.FetchAllProductsWithVariants(jc.Context())
		if err != nil {
			return "", err
		}

		var lines []string
		for _, folder := range bases {
			base := filepath.Base(folder)
			productID, reason := chooseProductForBase(jc.Context(), shopify, products, base)
			if productID == 0 {
				jc.Inc("skipped_bases", 1)
				lines = append(lines, fmt.Sprintf("%s -> skip:%s", base, reason))
				continue
			}

			if req.OnlyEmptyProducts {
				existing, err := shopify.GetProductImages(jc.Context(), productID)
				if err == nil && len(existing) > 0 {
					jc.Inc("skipped_bases", 1)
					lines = append(lines, fmt.Sprintf("%s -> skip:product %d already has %d image(s)", base, productID, len(existing)))
					continue
				}
			}

			var files []string
			if req.OneLevel {
				files, err = images.ListImagesShallow(folder)
			} else {
				files, err = images.ListImages(folder)
			}
			if err != nil || len(files) == 0 {
				jc.Inc("skipped_bases", 1)
				lines = append(lines, fmt.Sprintf("%s -> skip:no image files", base))
				continue
			}
			if req.LimitFilesPerBase > 0 && len(files) > req.LimitFilesPerBase {
				files = files[:req.LimitFilesPerBase]
			}

			for _, path := range files {
				jc.Inc("files", 1)
				data, err := os.ReadFile(path)
				if err != nil {
					jc.Inc("failed_items", 1)
					lines = append(lines, fmt.Sprintf("%s -> error:read-failed reason=%v", path, err))
					continue
				}
				attachment := clients.ImageAttachment{
					Attachment: base64.StdEncoding.EncodeToString(data),
					Filename:   filepath.Base(path),
				}
				if req.AltFrom == "stem" {
					attachment.Alt = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				}
				if _, err := shopify.UploadProductImage(jc.Context(), productID, attachment); err != nil {
					jc.Inc("failed_items", 1)
					lines = append(lines, fmt.Sprintf("%s -> error:upload-failed base=%s reason=%v", path, base, err))
					continue
				}
				jc.Inc("uploaded", 1)
				lines = append(lines, fmt.Sprintf("%s -> ok:uploaded base=%s product_id=%d", path, base, productID))
				sleepCtx(jc.Context(), delay)
			}
		}

		return finishUploadJob(jc, resultsDir, lines)
	})
	if err != nil {
		h.submitError(c, err)
		return
	}
	respondData(c, http.StatusAccepted, job)
}

// chooseProductForBase matches a base folder name against variant SKU
// prefixes. Ambiguity narrows first by exact suffix-stripped base match,
// then by fewest existing images.
func chooseProductForBase(ctx context.Context, shopify *clients.ShopifyClient, products []clients.ProductVariants, base string) (int64, string) {
	var candidates []clients.ProductVariants
	for _, p := range products {
		for _, sku := range p.VariantSKUs {
			if strings.HasPrefix(sku, base) {
				candidates = append(candidates, p)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return 0, "no matching product by variant SKU prefix"
	}
	if len(candidates) > 1 {
		var narrowed []clients.ProductVariants
		for _, p := range candidates {
			for _, sku := range p.VariantSKUs {
				if images.BaseFromVariantSKU(sku) == base {
					narrowed = append(narrowed, p)
					break
				}
			}
		}
		if len(narrowed) == 1 {
			candidates = narrowed
		} else {
			best := candidates[0]
			bestCount := -1
			for _, p := range candidates {
				imgs, err := shopify.GetProductImages(ctx, p.ProductID)
				if err != nil {
					continue
				}
				if bestCount < 0 || len(imgs) < bestCount {
					best = p
					bestCount = len(imgs)
				}
			}
			candidates = []clients.ProductVariants{best}
		}
	}
	return candidates[0].ProductID, ""
}

// CreateBroadcast queues one image for attachment to many products.
// Multipart: file "image", optional fields product_ids, alt, limit,
// skip_if_alt_exists, dry_run, delay.
// POST /jobs/images/broadcast
func (h *ImagesHandler) CreateBroadcast(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "multipart field 'image' is required")
		return
	}
	shopify, ok := h.requireShopify(c)
	if !ok {
		return
	}

	dest := filepath.Join(h.cfg.UploadsDir, "broadcast-"+uuid.New().String()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, dest); err != nil {
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", "failed to store broadcast image")
		return
	}

	var productIDs []int64
	for _, tok := range strings.Split(c.PostForm("product_ids"), ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid product id: "+tok)
			return
		}
		productIDs = append(productIDs, id)
	}

	alt := c.PostForm("alt")
	if alt == "" {
		alt = strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	}
	limit, _ := strconv.Atoi(c.PostForm("limit"))
	skipIfAltExists := c.PostForm("skip_if_alt_exists") == "true"
	dryRun := c.PostForm("dry_run") == "true"
	delayVal, _ := strconv.ParseFloat(c.PostForm("delay"), 64)
	delay := h.delayOrDefault(delayVal)

	params := models.JSON{"image": fileHeader.Filename, "alt": alt, "dry_run": dryRun, "limit": limit}
	resultsDir := h.cfg.ResultsDir

	job, err := h.engine.Submit(c.Request.Context(), models.JobKindImagesBroadcast, params, func(jc *engine.JobContext) (string, error) {
		targets := productIDs
		if len(targets) == 0 {
			products, err := shopify.FetchAllProductsWithVariants(jc.Context())
			if err != nil {
				return "", err
			}
			for _, p := range products {
				targets = append(targets, p.ProductID)
			}
		}
		if limit > 0 && len(targets) > limit {
			targets = targets[:limit]
		}
		jc.Set("products", int64(len(targets)))

		data, err := os.ReadFile(dest)
		if err != nil {
			return "", fmt.Errorf("failed to read broadcast image: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(data)

		var lines []string
		for _, productID := range targets {
			if skipIfAltExists {
				existing, err := shopify.GetProductImages(jc.Context(), productID)
				if err == nil && hasImageWithAlt(existing, alt) {
					jc.Inc("skipped", 1)
					lines = append(lines, fmt.Sprintf("product_id=%d -> skip:alt-exists", productID))
					continue
				}
			}
			if dryRun {
				jc.Inc("would_upload", 1)
				lines = append(lines, fmt.Sprintf("product_id=%d -> dry-run:would-upload", productID))
				continue
			}
			attachment := clients.ImageAttachment{
				Attachment: encoded,
				Filename:   fileHeader.Filename,
				Alt:        alt,
			}
			if _, err := shopify.UploadProductImage(jc.Context(), productID, attachment); err != nil {
				jc.Inc("failed_items", 1)
				lines = append(lines, fmt.Sprintf("product_id=%d -> error:upload-failed reason=%v", productID, err))
				continue
			}
			jc.Inc("uploaded", 1)
			lines = append(lines, fmt.Sprintf("product_id=%d -> ok:uploaded", productID))
			sleepCtx(jc.Context(), delay)
		}

		if dryRun {
			return writeResultLines(resultsDir, jc.JobID(), lines)
		}
		return finishUploadJob(jc, resultsDir, lines)
	})
	if err != nil {
		h.submitError(c, err)
		return
	}
	respondData(c, http.StatusAccepted, job)
}

func hasImageWithAlt(imgs []clients.ProductImage, alt string) bool {
	for _, img := range imgs {
		if img.Alt != nil && *img.Alt == alt {
			return true
		}
	}
	return false
}

// StagedParams returns direct-upload targets for the given files, in
// input order. Synchronous: the browser needs the URLs immediately.
// POST /uploads/staged/params
func (h *ImagesHandler) StagedParams(c *gin.Context) {
	var req struct {
		Files []models.StagedFile `json:"files" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(req.Files) == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "at least one file is required")
		return
	}
	shopify, ok := h.requireShopify(c)
	if !ok {
		return
	}

	files := make([]clients.StagedUploadFile, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, clients.StagedUploadFile{
			Filename: f.Filename,
			MimeType: f.MimeType,
			FileSize: f.FileSize,
		})
	}

	targets, err := shopify.StagedUploadsCreate(c.Request.Context(), files)
	if err != nil {
		respondError(c, http.StatusBadGateway, "SHOPIFY_ERROR", err.Error())
		return
	}
	respondData(c, http.StatusOK, targets)
}

// CreateStagedAttach queues attachment of already-staged uploads to
// products, resolving each item's SKU to a variant when no product id
// is given.
// POST /jobs/images/staged/attach-by-sku
func (h *ImagesHandler) CreateStagedAttach(c *gin.Context) {
	var req models.StagedAttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(req.Items) == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "at least one item is required")
		return
	}
	shopify, ok := h.requireShopify(c)
	if !ok {
		return
	}

	params := models.JSON{"items": len(req.Items), "match_multiple": req.MatchMultiple, "link_to_variant": req.LinkToVariant}
	resultsDir := h.cfg.ResultsDir
	delay := h.delayOrDefault(req.Delay)

	job, err := h.engine.Submit(c.Request.Context(), models.JobKindImagesStagedAttach, params, func(jc *engine.JobContext) (string, error) {
		var lines []string
		for _, item := range req.Items {
			jc.Inc("items", 1)
			label := item.Filename
			if label == "" {
				label = item.ResourceURL
			}

			targets := []clients.Variant{{ID: item.VariantID, ProductID: item.ProductID}}
			if item.ProductID == 0 {
				if item.Sku == "" {
					jc.Inc("failed_items", 1)
					lines = append(lines, label+" -> error:no-sku-or-product-id")
					continue
				}
				variants, err := shopify.FindVariantsBySKU(jc.Context(), item.Sku)
				if err != nil {
					jc.Inc("failed_items", 1)
					lines = append(lines, fmt.Sprintf("%s -> error:lookup-failed sku=%s reason=%v", label, item.Sku, err))
					continue
				}
				if len(variants) == 0 {
					jc.Inc("failed_items", 1)
					lines = append(lines, fmt.Sprintf("%s -> error:no-variant-for-sku:%s", label, item.Sku))
					continue
				}
				if req.MatchMultiple != "all" {
					variants = variants[:1]
				}
				targets = variants
			}

			// A SKU can match variants across several products; attach to
			// each product once.
			seen := make(map[int64]bool, len(targets))
			for _, v := range targets {
				if seen[v.ProductID] {
					continue
				}
				seen[v.ProductID] = true

				attachment := clients.ImageAttachment{
					Src:      item.ResourceURL,
					Filename: item.Filename,
					Alt:      item.Alt,
				}
				if req.LinkToVariant && v.ID != 0 {
					attachment.VariantIDs = []int64{v.ID}
				}

				if _, err := shopify.UploadProductImage(jc.Context(), v.ProductID, attachment); err != nil {
					jc.Inc("failed_items", 1)
					lines = append(lines, fmt.Sprintf("%s -> error:attach-failed reason=%v", label, err))
					continue
				}
				jc.Inc("attached", 1)
				lines = append(lines, fmt.Sprintf("%s -> ok:attached product_id=%d", label, v.ProductID))
				sleepCtx(jc.Context(), delay)
			}
		}

		return finishUploadJob(jc, resultsDir, lines)
	})
	if err != nil {
		h.submitError(c, err)
		return
	}
	respondData(c, http.StatusAccepted, job)
}

func (h *ImagesHandler) submitError(c *gin.Context, err error) {
	if errors.Is(err, engine.ErrQueueFull) {
		respondError(c, http.StatusServiceUnavailable, "QUEUE_FULL", "job queue is full, retry later")
		return
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to submit job")
}
