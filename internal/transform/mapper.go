package transform

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MapOptions controls title cleanup and variant defaults.
type MapOptions struct {
	Brand         string // leading brand token stripped from titles
	Vendor        string
	DefaultQty    int
	DefaultGrams  int
	QtyBlank      bool // leave Variant Inventory Qty empty
	LimitProducts int  // 0 means no limit
}

// MappedVariant is one size variant ready for the export writer.
type MappedVariant struct {
	SKU       string
	Size      string // normalized, uppercased for output
	Price     string
	CompareAt string
	Grams     string
	Qty       string
}

// ProductContext carries the descriptive attributes of a product's lead
// row, used for description generation.
type ProductContext struct {
	Title       string
	ProductType string
	Fabric      string
	Shape       string
	Neck        string
	Sleeve      string
	Length      string
	Pattern     string
	Occasion    string
	Color       string
	Care        string
	Fit         string
	Season      string
	Usage       string
}

// MappedProduct is one Shopify product with its variants in size order.
// BodyHTML is filled in by the description resolver after mapping.
type MappedProduct struct {
	Handle   string
	Title    string
	BodyHTML string
	Vendor   string
	Category string
	Type     string
	Context  ProductContext
	FirstRow Row
	Variants []MappedVariant
}

var priceRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parsePrice extracts the first number from a currency-formatted value
// ("Rs. 2,499", "₹1,299.50") and returns it as a two-decimal string, or
// empty when the value is absent or unparseable.
func parsePrice(raw string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	num := priceRe.FindString(cleaned)
	if num == "" {
		return ""
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return ""
	}
	return d.StringFixed(2)
}

// variantPricing applies the discount rule per variant: when the selling
// price undercuts the MRP, the MRP becomes the compare-at price;
// otherwise the MRP is the price and no compare-at is shown.
func variantPricing(row Row) (price, compareAt string) {
	selling := parsePrice(row.Get("Selling Price", "Selling price"))
	mrp := parsePrice(row.Get("MRP"))

	switch {
	case selling != "" && mrp != "":
		s, _ := decimal.NewFromString(selling)
		m, _ := decimal.NewFromString(mrp)
		if s.LessThan(m) {
			return selling, mrp
		}
		return mrp, ""
	case mrp != "":
		return mrp, ""
	default:
		return selling, ""
	}
}

// MapGroups turns style groups into export-ready products. Rows with no
// SKU are dropped with a row error; groups left empty are skipped.
func MapGroups(groups []StyleGroup, opts MapOptions, report *Report) []MappedProduct {
	if opts.LimitProducts > 0 && len(groups) > opts.LimitProducts {
		groups = groups[:opts.LimitProducts]
	}

	qty := strconv.Itoa(opts.DefaultQty)
	if opts.QtyBlank {
		qty = ""
	}
	grams := strconv.Itoa(opts.DefaultGrams)

	var products []MappedProduct
	for _, g := range groups {
		first := g.Rows[0]

		rawTitle := first.Get("productDisplayName", "vendorArticleName")
		title := StripLeadingBrand(rawTitle, opts.Brand)
		if title == "" {
			title = rawTitle
		}

		handle := Slugify(title)
		if handle == "" {
			handle = Slugify(g.Key)
		}
		if styleID := NormalizeExcelInt(first.Get("styleId")); styleID != "" {
			handle = handle + "-" + Slugify(styleID)
		}

		articleType := first.Get("articleType")
		category, productType, mapped := MapFromSourceKind(first.SourceKind, articleType, rawTitle)
		if !mapped {
			report.Inc(CounterUnmappedCategory, 1)
		}

		var variants []MappedVariant
		for _, row := range g.Rows {
			sku := row.Get("vendorSkuCode", "SKUCode")
			if sku == "" {
				report.Inc(CounterSkippedRows, 1)
				report.AddRowError(row.Line, "vendorSkuCode", "missing_sku", "row has no vendor SKU")
				continue
			}
			size := NormalizeSize(row.Get("Standard Size", "Brand Size"))
			if size != "" && !IsCanonicalSize(size) {
				report.Inc(CounterUnnormalizedSize, 1)
			}
			price, compareAt := variantPricing(row)
			variants = append(variants, MappedVariant{
				SKU:       sku,
				Size:      strings.ToUpper(size),
				Price:     price,
				CompareAt: compareAt,
				Grams:     grams,
				Qty:       qty,
			})
		}
		if len(variants) == 0 {
			continue
		}

		products = append(products, MappedProduct{
			Handle:   handle,
			Title:    title,
			Vendor:   opts.Vendor,
			Category: category,
			Type:     productType,
			Context:  buildContext(first, title, productType),
			FirstRow: first,
			Variants: variants,
		})
		report.Inc(CounterProducts, 1)
	}
	return products
}

func buildContext(first Row, title, productType string) ProductContext {
	return ProductContext{
		Title:       title,
		ProductType: productType,
		Fabric:      first.Get("Fabric", "Fabric 2"),
		Shape:       first.Get("Shape"),
		Neck:        first.Get("Neck"),
		Sleeve:      first.Get("Sleeve Length"),
		Length:      first.Get("Length"),
		Pattern:     first.Get("Pattern", "Print or Pattern Type"),
		Occasion:    first.Get("Occasion"),
		Color:       first.Get("Prominent Colour"),
		Care:        first.Get("Wash Care", "materialCareDescription"),
		Fit:         first.Get("Fit"),
		Season:      first.Get("season"),
		Usage:       first.Get("Usage"),
	}
}
