package describe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-feed-service/internal/transform"
)

type fakeGenerator struct {
	calls  int64
	output string
	err    error
}

func (g *fakeGenerator) GenerateHTML(_ context.Context, _, _ string) (string, error) {
	atomic.AddInt64(&g.calls, 1)
	return g.output, g.err
}

type mapCache map[string]string

func (c mapCache) Get(_ context.Context, handle string) (string, bool) {
	v, ok := c[handle]
	return v, ok && v != ""
}

func (c mapCache) Put(_ context.Context, handle, html string) {
	c[handle] = html
}

func narrativeRow() transform.Row {
	return transform.Row{Fields: map[string]string{
		"Product Details": "Zummer A breezy floral dress",
		"styleNote":       "Pairs well with <sneakers>",
	}}
}

func attrOnlyRow() transform.Row {
	return transform.Row{Fields: map[string]string{
		"Fabric": "Cotton",
		"Neck":   "V-Neck",
	}}
}

func TestBuildBodyHTMLNarrativeBlocks(t *testing.T) {
	html := BuildBodyHTML(narrativeRow(), "zummer")
	assert.Equal(t, "<p>A breezy floral dress</p><p>Pairs well with &lt;sneakers&gt;</p>", html)
}

func TestBuildBodyHTMLAttributeFallback(t *testing.T) {
	html := BuildBodyHTML(attrOnlyRow(), "zummer")
	assert.Equal(t, "<p>Cotton, V-Neck</p>", html)
}

func TestBuildBodyHTMLEmptyRow(t *testing.T) {
	assert.Equal(t, "", BuildBodyHTML(transform.Row{Fields: map[string]string{}}, "zummer"))
}

func TestSanitizeHTML(t *testing.T) {
	// chatty models: only the final paragraph survives
	raw := "Let me think about this.\n<p>draft</p>\nHere you go:\n<p>Final copy<br>line two</p>"
	assert.Equal(t, "<p>Final copy<br>line two</p>", SanitizeHTML(raw))

	// plain text is escaped and br-joined
	assert.Equal(t, "<p>a &amp; b<br>c</p>", SanitizeHTML("a & b\nc"))

	assert.Equal(t, "", SanitizeHTML("   "))
}

func TestResolverCacheHitSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{output: "<p>fresh</p>"}
	cache := mapCache{"handle-1": "<p>cached</p>"}
	r := &Resolver{Client: gen, Cache: cache, Policy: PolicyPreferLLM, Brand: "Zummer"}

	report := transform.NewReport()
	html := r.Resolve(context.Background(), "handle-1", narrativeRow(), transform.ProductContext{}, report)

	assert.Equal(t, "<p>cached</p>", html)
	assert.Equal(t, int64(0), atomic.LoadInt64(&gen.calls))
	assert.Equal(t, int64(1), report.Counters[CounterLLMCacheHits])
}

func TestResolverRefreshBypassesCache(t *testing.T) {
	gen := &fakeGenerator{output: "<p>fresh</p>"}
	cache := mapCache{"handle-1": "<p>cached</p>"}
	r := &Resolver{Client: gen, Cache: cache, Policy: PolicyPreferLLM, Refresh: true, Brand: "Zummer"}

	report := transform.NewReport()
	html := r.Resolve(context.Background(), "handle-1", narrativeRow(), transform.ProductContext{}, report)

	assert.Equal(t, "<p>fresh</p>", html)
	assert.Equal(t, int64(1), atomic.LoadInt64(&gen.calls))
	assert.Equal(t, "<p>fresh</p>", cache["handle-1"])
}

func TestResolverCapLimitsCalls(t *testing.T) {
	gen := &fakeGenerator{output: "<p>fresh</p>"}
	r := &Resolver{Client: gen, Policy: PolicyPreferLLM, MaxProducts: 2, Brand: "Zummer"}

	report := transform.NewReport()
	for i := 0; i < 5; i++ {
		r.Resolve(context.Background(), "h", narrativeRow(), transform.ProductContext{}, report)
	}

	assert.Equal(t, int64(2), atomic.LoadInt64(&gen.calls))
	assert.Equal(t, int64(3), report.Counters[CounterLLMCapped])
}

func TestResolverFallbackOnlyPolicy(t *testing.T) {
	gen := &fakeGenerator{output: "<p>fresh</p>"}
	r := &Resolver{Client: gen, Policy: PolicyFallbackOnly, Brand: "Zummer"}

	report := transform.NewReport()

	// narrative rows never reach the model
	html := r.Resolve(context.Background(), "h1", narrativeRow(), transform.ProductContext{}, report)
	assert.Contains(t, html, "A breezy floral dress")
	assert.Equal(t, int64(0), atomic.LoadInt64(&gen.calls))

	// an empty attribute body does
	html = r.Resolve(context.Background(), "h2", transform.Row{Fields: map[string]string{}}, transform.ProductContext{}, report)
	assert.Equal(t, "<p>fresh</p>", html)
	assert.Equal(t, int64(1), atomic.LoadInt64(&gen.calls))
}

func TestResolverFailureFallsBackToAttributes(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	r := &Resolver{Client: gen, Policy: PolicyPreferLLM, Brand: "Zummer"}

	report := transform.NewReport()
	html := r.Resolve(context.Background(), "h", narrativeRow(), transform.ProductContext{}, report)

	assert.Contains(t, html, "A breezy floral dress")
	assert.Equal(t, int64(1), report.Counters[CounterLLMFailures])
	// the attempt still counts against the cap
	assert.Equal(t, 1, r.used)
}

func TestResolverCapBoundsFailedCalls(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	r := &Resolver{Client: gen, Policy: PolicyPreferLLM, MaxProducts: 1, Brand: "Zummer"}

	report := transform.NewReport()
	for i := 0; i < 5; i++ {
		r.Resolve(context.Background(), "h", narrativeRow(), transform.ProductContext{}, report)
	}

	assert.Equal(t, int64(1), atomic.LoadInt64(&gen.calls))
	assert.Equal(t, int64(1), report.Counters[CounterLLMFailures])
	assert.Equal(t, int64(4), report.Counters[CounterLLMCapped])
}

func TestBuildPromptIncludesAttributes(t *testing.T) {
	system, user := BuildPrompt(transform.ProductContext{
		Title:  "Floral Wrap Dress",
		Fabric: "Cotton",
	}, "Zummer", "Modern Indian women, 25-35")

	require.Contains(t, system, "Zummer")
	assert.Contains(t, user, "title: Floral Wrap Dress")
	assert.Contains(t, user, "fabric: Cotton")
	assert.NotContains(t, user, "neck:")
}
