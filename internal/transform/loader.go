package transform

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one raw spreadsheet row keyed by the source column names.
type Row struct {
	Fields     map[string]string
	SourceKind string // workbook sheet name (lowercased), empty for CSV
	Line       int    // 1-based row number in the source, for error reporting
}

// Get returns the first non-empty trimmed value among the given columns.
func (r Row) Get(columns ...string) string {
	for _, c := range columns {
		if v := strings.TrimSpace(r.Fields[c]); v != "" {
			return v
		}
	}
	return ""
}

// LoadRows reads a vendor listing file (CSV or Excel workbook) into raw
// rows. Returns a FormatError when the file has no usable header.
func LoadRows(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return loadXLSX(path)
	default:
		return loadCSV(path)
	}
}

func loadCSV(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, formatErrorf("failed to read input file: %v", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // UTF-8 BOM

	// Vendor exports are not always comma-separated. Try each delimiter
	// and keep the first parse that yields a recognizable header.
	var fallback [][]string
	for _, delim := range []rune{',', ';', '\t'} {
		records, err := parseDelimited(data, delim)
		if err != nil || len(records) == 0 {
			continue
		}
		if idx, ok := findHeader(records); ok {
			return buildRows(records, idx, ""), nil
		}
		if fallback == nil {
			fallback = records
		}
	}
	if fallback != nil {
		if idx := firstNonEmpty(fallback); idx >= 0 {
			return buildRows(fallback, idx, ""), nil
		}
	}
	return nil, formatErrorf("no recognizable header row found in %s", filepath.Base(path))
}

func parseDelimited(data []byte, delim rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv parse error: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func loadXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, formatErrorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	var all []Row
	headerFound := false
	for _, sheet := range f.GetSheetList() {
		records, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		idx, ok := findHeader(records)
		if !ok {
			idx = firstNonEmpty(records)
		}
		if idx < 0 {
			continue
		}
		headerFound = true
		all = append(all, buildRows(records, idx, strings.ToLower(strings.TrimSpace(sheet)))...)
	}
	if !headerFound {
		return nil, formatErrorf("no recognizable header row found in %s", filepath.Base(path))
	}
	return all, nil
}

// findHeader locates a plausible header row: one naming the style id and
// vendor SKU columns plus a display name or article type. Tolerates
// preface lines before the header (e.g. "Version : 8").
func findHeader(records [][]string) (int, bool) {
	for i, record := range records {
		var hasStyleID, hasSku, hasDisplay, hasArticle bool
		for _, cell := range record {
			switch strings.ToLower(strings.TrimSpace(cell)) {
			case "styleid":
				hasStyleID = true
			case "vendorskucode":
				hasSku = true
			case "productdisplayname":
				hasDisplay = true
			case "articletype":
				hasArticle = true
			}
		}
		if hasStyleID && hasSku && (hasDisplay || hasArticle) {
			return i, true
		}
	}
	return -1, false
}

func firstNonEmpty(records [][]string) int {
	for i, record := range records {
		for _, cell := range record {
			if strings.TrimSpace(cell) != "" {
				return i
			}
		}
	}
	return -1
}

// buildRows materializes rows after the header, dropping blank rows and
// rows with no style or SKU identifiers. Excel float-formatted integer
// ids are normalized here so grouping keys compare cleanly.
func buildRows(records [][]string, headerIdx int, sourceKind string) []Row {
	header := make([]string, len(records[headerIdx]))
	for i, name := range records[headerIdx] {
		header[i] = strings.TrimSpace(name)
	}

	var rows []Row
	for rowIdx, record := range records[headerIdx+1:] {
		empty := true
		for _, cell := range record {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				fields[name] = strings.TrimSpace(record[i])
			} else {
				fields[name] = ""
			}
		}
		for _, idCol := range []string{"styleId", "styleGroupId", "SKUCode"} {
			if v, ok := fields[idCol]; ok {
				fields[idCol] = NormalizeExcelInt(v)
			}
		}
		if fields["styleId"] == "" && fields["styleGroupId"] == "" &&
			fields["SKUCode"] == "" && fields["vendorSkuCode"] == "" {
			continue
		}
		rows = append(rows, Row{
			Fields:     fields,
			SourceKind: sourceKind,
			Line:       headerIdx + rowIdx + 2, // 1-based, after header
		})
	}
	return rows
}
