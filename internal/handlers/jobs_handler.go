package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"shopify-feed-service/internal/clients"
	"shopify-feed-service/internal/config"
	"shopify-feed-service/internal/describe"
	"shopify-feed-service/internal/engine"
	"shopify-feed-service/internal/metrics"
	"shopify-feed-service/internal/models"
	"shopify-feed-service/internal/repository"
	"shopify-feed-service/internal/settings"
	"shopify-feed-service/internal/transform"
)

// JobsHandler submits transform jobs and serves job state and results.
type JobsHandler struct {
	engine   *engine.Engine
	repo     *repository.JobsRepository
	cfg      *config.Config
	settings *settings.Store
	llm      *clients.LLMClient
	redis    *redis.Client
	metrics  *metrics.Metrics
}

func NewJobsHandler(eng *engine.Engine, repo *repository.JobsRepository, cfg *config.Config, store *settings.Store, llm *clients.LLMClient, redisClient *redis.Client, m *metrics.Metrics) *JobsHandler {
	return &JobsHandler{
		engine:   eng,
		repo:     repo,
		cfg:      cfg,
		settings: store,
		llm:      llm,
		redis:    redisClient,
		metrics:  m,
	}
}

// instrumentedGenerator counts model calls on the way through.
type instrumentedGenerator struct {
	gen describe.Generator
	m   *metrics.Metrics
}

func (g *instrumentedGenerator) GenerateHTML(ctx context.Context, system, user string) (string, error) {
	g.m.LLMCalls.Inc()
	out, err := g.gen.GenerateHTML(ctx, system, user)
	if err != nil {
		g.m.LLMFailures.Inc()
	}
	return out, err
}

// CreateTransform validates the request, resolves the source file, and
// queues a transform job. All configuration is captured here; the job
// body never consults settings mid-run.
// POST /jobs/transform
func (h *JobsHandler) CreateTransform(c *gin.Context) {
	var req models.TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	file, err := h.repo.GetFile(c.Request.Context(), req.FileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "file not found: "+req.FileID)
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load file record")
		return
	}

	s := h.settings.Get()
	if req.DefaultQty == 0 {
		req.DefaultQty = s.DefaultQty
	}
	if req.DefaultGrams == 0 {
		req.DefaultGrams = s.DefaultGrams
	}
	if req.LLMMaxProducts == 0 {
		req.LLMMaxProducts = s.LLMMaxProductsDefault
	}
	brandStrip := req.BrandStrip
	if brandStrip == "" {
		brandStrip = s.BrandStripValue
	}

	params := models.JSON{
		"file_id":           req.FileID,
		"file_name":         file.Name,
		"default_qty":       req.DefaultQty,
		"default_grams":     req.DefaultGrams,
		"llm_enable":        req.LLMEnable,
		"llm_prefer":        req.LLMPrefer,
		"llm_refresh":       req.LLMRefresh,
		"llm_max_products":  req.LLMMaxProducts,
		"brand_strip":       brandStrip,
		"variant_qty_blank": req.VariantQtyBlank,
	}

	sourcePath := file.Path
	resultsDir := h.cfg.ResultsDir
	resolver := h.buildResolver(req, s, brandStrip)

	job, err := h.engine.Submit(c.Request.Context(), models.JobKindTransform, params, func(jc *engine.JobContext) (string, error) {
		return runTransform(jc, sourcePath, resultsDir, req, brandStrip, s.VendorName, resolver)
	})
	if err != nil {
		if errors.Is(err, engine.ErrQueueFull) {
			respondError(c, http.StatusServiceUnavailable, "QUEUE_FULL", "job queue is full, retry later")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to submit job")
		return
	}

	respondData(c, http.StatusAccepted, job)
}

// buildResolver wires the description source chain for one run: model
// client when enabled, cache backend, policy, and the per-run call cap.
func (h *JobsHandler) buildResolver(req models.TransformRequest, s settings.Settings, brandStrip string) *describe.Resolver {
	resolver := &describe.Resolver{
		Policy:      describe.PolicyFallbackOnly,
		MaxProducts: req.LLMMaxProducts,
		Refresh:     req.LLMRefresh,
		Delay:       time.Duration(h.cfg.LLMRateSleep * float64(time.Second)),
		Brand:       brandStrip,
		Audience:    s.BrandAudience,
	}
	if s.BrandName != "" {
		resolver.Brand = s.BrandName
	}
	if req.LLMPrefer {
		resolver.Policy = describe.PolicyPreferLLM
	}
	if req.LLMEnable {
		resolver.Client = &instrumentedGenerator{gen: h.llm, m: h.metrics}
	}

	cacheDir := req.CacheDir
	if cacheDir == "" {
		cacheDir = h.cfg.LLMCacheDir
	}
	if h.redis != nil && req.CacheDir == "" {
		resolver.Cache = describe.NewRedisCache(h.redis, 0)
	} else {
		resolver.Cache = describe.NewFileCache(cacheDir)
	}
	return resolver
}

// runTransform is the transform job body: load, group, map, describe,
// write. Fatal only on unreadable input or a failed write; every
// row-level problem lands in the counters instead.
func runTransform(jc *engine.JobContext, sourcePath, resultsDir string, req models.TransformRequest, brandStrip, vendor string, resolver *describe.Resolver) (string, error) {
	resolver.Logger = jc.Logger()

	rows, err := transform.LoadRows(sourcePath)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no data rows found in input file")
	}

	report := transform.NewReport()
	groups := transform.GroupRows(rows, report)
	products := transform.MapGroups(groups, transform.MapOptions{
		Brand:        brandStrip,
		Vendor:       vendor,
		DefaultQty:   req.DefaultQty,
		DefaultGrams: req.DefaultGrams,
		QtyBlank:     req.VariantQtyBlank,
	}, report)

	jc.Merge(report.Counters)
	jc.Set("products_total", int64(len(products)))

	for i := range products {
		p := &products[i]
		p.BodyHTML = resolver.Resolve(jc.Context(), p.Handle, p.FirstRow, p.Context, report)
		jc.Set("products_described", int64(i+1))
	}

	// Counters added during description resolution (cache hits, calls,
	// failures) were written to the report; fold in the delta.
	described := report.Counters
	for _, name := range []string{
		describe.CounterLLMCalls,
		describe.CounterLLMCacheHits,
		describe.CounterLLMCapped,
		describe.CounterLLMFailures,
	} {
		if v, ok := described[name]; ok && v > 0 {
			jc.Set(name, v)
		}
	}

	outPath := filepath.Join(resultsDir, jc.JobID()+".csv")
	if err := transform.WriteCSV(outPath, products); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return outPath, nil
}

// List returns jobs with optional kind/status filters.
// GET /jobs
func (h *JobsHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, total, err := h.repo.ListJobs(c.Request.Context(), c.Query("kind"), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list jobs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    jobs,
		"total":   total,
	})
}

// Get returns one job, with live counters while it runs.
// GET /jobs/:id
func (h *JobsHandler) Get(c *gin.Context) {
	job, err := h.engine.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "job not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load job")
		return
	}
	respondData(c, http.StatusOK, job)
}

// Download streams the result artifact of a succeeded job. Any other
// state is a 404: a result that is not final does not exist yet.
// GET /jobs/:id/download
func (h *JobsHandler) Download(c *gin.Context) {
	job, err := h.repo.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "job not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load job")
		return
	}
	if job.Status != models.JobStatusSucceeded || job.ResultPath == nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "job has no downloadable result")
		return
	}

	filename := filepath.Base(*job.ResultPath)
	c.FileAttachment(*job.ResultPath, filename)
}
