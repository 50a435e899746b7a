package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRowsCSV(t *testing.T) {
	path := writeTemp(t, "input.csv",
		"styleId,styleGroupId,vendorSkuCode,SKUCode,productDisplayName,Standard Size\n"+
			"5225.0,G1,ZM101S,ZM101S,Zummer Dress,Small\n"+
			"5225.0,G1,ZM101M,ZM101M,Zummer Dress,Medium\n")

	rows, err := LoadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "5225", rows[0].Fields["styleId"]) // excel float collapsed
	assert.Equal(t, "ZM101S", rows[0].Get("vendorSkuCode"))
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "", rows[0].SourceKind)
}

func TestLoadRowsSkipsPrefaceAndBlankRows(t *testing.T) {
	path := writeTemp(t, "input.csv",
		"Version : 8,,,\n"+
			",,,\n"+
			"styleId,vendorSkuCode,articleType,Standard Size\n"+
			"11,SKU-1,Dresses,S\n"+
			",,,\n"+
			"12,SKU-2,Dresses,M\n")

	rows, err := LoadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SKU-1", rows[0].Get("vendorSkuCode"))
	assert.Equal(t, 4, rows[0].Line)
	assert.Equal(t, 6, rows[1].Line)
}

func TestLoadRowsSemicolonDelimiter(t *testing.T) {
	path := writeTemp(t, "input.csv",
		"styleId;vendorSkuCode;productDisplayName\n"+
			"11;SKU-1;Zummer Top\n")

	rows, err := LoadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Zummer Top", rows[0].Get("productDisplayName"))
}

func TestLoadRowsStripsBOM(t *testing.T) {
	path := writeTemp(t, "input.csv",
		"\xef\xbb\xbfstyleId,vendorSkuCode,articleType\n11,SKU-1,Dresses\n")

	rows, err := LoadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "11", rows[0].Fields["styleId"])
}

func TestLoadRowsEmptyFileIsFormatError(t *testing.T) {
	path := writeTemp(t, "input.csv", "")

	_, err := LoadRows(path)
	require.Error(t, err)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestLoadRowsMissingFileIsFormatError(t *testing.T) {
	_, err := LoadRows(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestLoadRowsDropsRowsWithoutIdentifiers(t *testing.T) {
	path := writeTemp(t, "input.csv",
		"styleId,vendorSkuCode,articleType,Remarks\n"+
			"11,SKU-1,Dresses,ok\n"+
			",,,just a note\n")

	rows, err := LoadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
