package transform

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// ExportHeaders is the fixed Shopify product-import column set. The
// names and their order are an external contract and must not change.
var ExportHeaders = []string{
	"Handle",
	"Title",
	"Body (HTML)",
	"Vendor",
	"Product Category",
	"Type",
	"Tags",
	"Published",
	"Option1 Name",
	"Option1 Value",
	"Variant SKU",
	"Variant Grams",
	"Variant Inventory Tracker",
	"Variant Inventory Qty",
	"Variant Inventory Policy",
	"Variant Fulfillment Service",
	"Variant Price",
	"Variant Compare At Price",
	"Variant Requires Shipping",
	"Variant Taxable",
	"Status",
}

// WriteCSV writes the Shopify import file, one row per variant. The
// product-level columns Published, Option1 Name and Status appear on the
// first variant row only. The write is atomic: a temp file in the
// destination directory replaces the target on success.
func WriteCSV(path string, products []MappedProduct) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(ExportHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range products {
		for idx, v := range p.Variants {
			record := exportRecord(p, v, idx == 0)
			if err := w.Write(record); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to finalize output: %w", err)
	}
	return nil
}

func exportRecord(p MappedProduct, v MappedVariant, firstRow bool) []string {
	cells := map[string]string{
		"Handle":                      p.Handle,
		"Title":                       p.Title,
		"Body (HTML)":                 p.BodyHTML,
		"Vendor":                      p.Vendor,
		"Product Category":            p.Category,
		"Type":                        p.Type,
		"Option1 Value":               v.Size,
		"Variant SKU":                 v.SKU,
		"Variant Grams":               v.Grams,
		"Variant Inventory Tracker":   "shopify",
		"Variant Inventory Qty":       v.Qty,
		"Variant Inventory Policy":    "deny",
		"Variant Fulfillment Service": "manual",
		"Variant Price":               v.Price,
		"Variant Compare At Price":    v.CompareAt,
		"Variant Requires Shipping":   "true",
		"Variant Taxable":             "true",
	}
	if firstRow {
		cells["Published"] = "true"
		cells["Option1 Name"] = "Size"
		cells["Status"] = "active"
	}

	record := make([]string, len(ExportHeaders))
	for i, h := range ExportHeaders {
		record[i] = cells[h]
	}
	return record
}
