package describe

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"shopify-feed-service/internal/transform"
)

// Generation policies.
const (
	PolicyPreferLLM    = "prefer-llm"    // LLM first, attributes as fallback
	PolicyFallbackOnly = "fallback-only" // attributes first, LLM fills gaps
)

// Counters reported on the run report.
const (
	CounterLLMCalls     = "llm_calls"
	CounterLLMCacheHits = "llm_cache_hits"
	CounterLLMCapped    = "llm_capped"
	CounterLLMFailures  = "llm_failures"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// BuildBodyHTML assembles the attribute-based description: one escaped
// <p> block per narrative field, or a comma-joined attribute line when
// the source has no narrative text at all.
func BuildBodyHTML(row transform.Row, brand string) string {
	var parts []string
	for _, col := range []string{
		"Product Details",
		"styleNote",
		"materialCareDescription",
		"sizeAndFitDescription",
	} {
		if val := row.Get(col); val != "" {
			parts = append(parts, transform.StripLeadingBrand(val, brand))
		}
	}
	if len(parts) == 0 {
		attrs := []string{
			row.Get("Fabric", "Fabric 2"),
			row.Get("Shape"),
			row.Get("Neck"),
			row.Get("Sleeve Length"),
			row.Get("Length"),
			row.Get("Pattern", "Print or Pattern Type"),
		}
		var kept []string
		for _, a := range attrs {
			if a != "" {
				kept = append(kept, a)
			}
		}
		if len(kept) > 0 {
			parts = append(parts, strings.Join(kept, ", "))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("<p>")
		b.WriteString(htmlEscaper.Replace(p))
		b.WriteString("</p>")
	}
	return b.String()
}

// BuildPrompt renders the system and user prompts for one product.
func BuildPrompt(pc transform.ProductContext, brand, audience string) (system, user string) {
	system = "You are an expert high-quality fashion ecommerce copywriter for Shopify. " +
		"Write one HTML paragraph (<p>...</p>) containing 3-5 short lines separated by <br>. " +
		"Keep the tone fresh, playful, conversational, and never too salesy. " +
		"Do not mention the brand name (" + brand + ") in your output. " +
		"Return ONLY the final HTML paragraph as the output, with no analysis or explanations. " +
		"The output goes directly into the Body (HTML) field of the Shopify product."

	pairs := []struct{ key, val string }{
		{"title", pc.Title},
		{"product_type", pc.ProductType},
		{"fabric", pc.Fabric},
		{"shape", pc.Shape},
		{"neck", pc.Neck},
		{"sleeve_length", pc.Sleeve},
		{"length", pc.Length},
		{"pattern", pc.Pattern},
		{"occasion", pc.Occasion},
		{"color", pc.Color},
		{"care", pc.Care},
		{"fit", pc.Fit},
		{"season", pc.Season},
		{"usage", pc.Usage},
		{"brand", brand},
		{"audience", audience},
	}
	var attrs []string
	for _, p := range pairs {
		if p.val != "" {
			attrs = append(attrs, fmt.Sprintf("%s: %s", p.key, p.val))
		}
	}

	user = "Write a 3-5 line Shopify product description (Body HTML) based on the following product details.\n" +
		strings.Join(attrs, "\n") + "\n" +
		"Constraints:\n" +
		"- Use the Title above as context; do not repeat it verbatim.\n" +
		"- Output ONE <p> block only, with each line separated by <br>.\n" +
		"- Tone: fresh, playful, conversational (not too salesy).\n" +
		"- Focus: fabric, fit, key design details (neckline, sleeve, length).\n" +
		"- Include how it suits vacations, brunches, kitty parties, or casual outings.\n" +
		"- Make it trendy yet wearable every day.\n" +
		"- End with a fun, friendly styling or usage tip as the final line.\n" +
		"- Do not start with the brand name.\n" +
		"- IMPORTANT: Return ONLY the final <p>...</p> block; no analysis or extra text."
	return system, user
}

var paragraphRe = regexp.MustCompile(`(?is)<p[^>]*>.*?</p>`)

// SanitizeHTML reduces raw model output to a single <p> block. Chatty
// models that prefix reasoning get only their final paragraph kept;
// plain-text answers are escaped and <br>-joined.
func SanitizeHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(strings.ToLower(raw), "<p") {
		if paras := paragraphRe.FindAllString(raw, -1); len(paras) > 0 {
			return strings.TrimSpace(paras[len(paras)-1])
		}
	}
	escaped := strings.ReplaceAll(htmlEscaper.Replace(raw), "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// Generator produces raw model output for a prompt.
type Generator interface {
	GenerateHTML(ctx context.Context, system, user string) (string, error)
}

// Resolver decides, per product, where the Body (HTML) comes from:
// cache, the model, or the attribute fallback. One resolver serves one
// run and enforces that run's call cap.
type Resolver struct {
	Client      Generator // nil disables LLM generation entirely
	Cache       Cache     // nil disables caching
	Policy      string    // PolicyPreferLLM or PolicyFallbackOnly
	MaxProducts int       // cap on LLM calls per run, 0 means unlimited
	Refresh     bool      // bypass cache reads, overwrite entries
	Delay       time.Duration
	Brand       string
	Audience    string
	Logger      *logrus.Entry

	mu   sync.Mutex
	used int
}

// Resolve returns the Body (HTML) for one product and bumps the report
// counters. It never returns an error: any generation failure falls back
// to the attribute description.
func (r *Resolver) Resolve(ctx context.Context, handle string, first transform.Row, pc transform.ProductContext, report *transform.Report) string {
	attr := BuildBodyHTML(first, r.Brand)
	if r.Client == nil {
		return attr
	}
	if r.Policy != PolicyPreferLLM && attr != "" {
		return attr
	}

	if r.Cache != nil && !r.Refresh {
		if html, ok := r.Cache.Get(ctx, handle); ok {
			report.Inc(CounterLLMCacheHits, 1)
			return html
		}
	}

	// Failed attempts consume the cap too: the cap bounds calls made, not
	// descriptions produced.
	if !r.reserveCall() {
		report.Inc(CounterLLMCapped, 1)
		return attr
	}

	system, user := BuildPrompt(pc, r.Brand, r.Audience)
	report.Inc(CounterLLMCalls, 1)
	raw, err := r.Client.GenerateHTML(ctx, system, user)
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil && r.Logger != nil {
			r.Logger.WithError(err).WithField("handle", handle).Warn("description generation failed")
		}
		report.Inc(CounterLLMFailures, 1)
		return attr
	}

	html := SanitizeHTML(raw)
	if r.Cache != nil {
		r.Cache.Put(ctx, handle, html)
	}
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
		}
	}
	return html
}

func (r *Resolver) reserveCall() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MaxProducts > 0 && r.used >= r.MaxProducts {
		return false
	}
	r.used++
	return true
}
