package transform

import (
	"sort"
)

// StyleGroup is one product-to-be: all rows sharing a grouping key, in
// size order.
type StyleGroup struct {
	Key  string
	Rows []Row
}

// groupKey picks the grouping key for a row: the shared style group id
// when present, otherwise the SKU itself, otherwise the style id. Rows
// without any key are unusable.
func groupKey(r Row) string {
	if v := r.Get("styleGroupId"); v != "" {
		return NormalizeExcelInt(v)
	}
	if v := r.Get("SKUCode", "vendorSkuCode"); v != "" {
		return v
	}
	return NormalizeExcelInt(r.Get("styleId"))
}

// GroupRows partitions rows into style groups. Groups preserve first-seen
// order; within a group rows sort by canonical size rank (stable, so
// unknown sizes keep their input order after the known ones). Rows with
// no grouping key and rows repeating an already-seen SKU are skipped and
// recorded on the report.
func GroupRows(rows []Row, report *Report) []StyleGroup {
	var order []string
	groups := make(map[string]*StyleGroup)
	seenSku := make(map[string]string) // sku -> group key

	for _, row := range rows {
		report.Inc(CounterRows, 1)

		key := groupKey(row)
		if key == "" {
			report.Inc(CounterSkippedRows, 1)
			report.AddRowError(row.Line, "styleGroupId", "missing_group_key", "row has no styleGroupId, SKUCode or styleId")
			continue
		}

		// Same precedence as the exported Variant SKU, so dedup guards
		// exactly what ends up in the output file.
		sku := row.Get("vendorSkuCode", "SKUCode")
		if sku != "" {
			if prev, dup := seenSku[sku]; dup {
				report.Inc(CounterSkippedRows, 1)
				report.Inc(CounterDuplicateSku, 1)
				msg := "duplicate SKU " + sku
				if prev != key {
					msg += " (already used by group " + prev + ")"
				}
				report.AddRowError(row.Line, "SKUCode", "duplicate_sku", msg)
				continue
			}
			seenSku[sku] = key
		}

		g, ok := groups[key]
		if !ok {
			g = &StyleGroup{Key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.Rows = append(g.Rows, row)
	}

	out := make([]StyleGroup, 0, len(order))
	for _, key := range order {
		g := groups[key]
		sort.SliceStable(g.Rows, func(i, j int) bool {
			ri := sizeRank(NormalizeSize(g.Rows[i].Get("Standard Size", "Brand Size")))
			rj := sizeRank(NormalizeSize(g.Rows[j].Get("Standard Size", "Brand Size")))
			return ri < rj
		})
		out = append(out, *g)
	}
	return out
}
