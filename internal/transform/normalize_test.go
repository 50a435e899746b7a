package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSize(t *testing.T) {
	cases := map[string]string{
		"Extra Large": "xl",
		"XXL":         "2xl",
		"xx-large":    "2xl",
		"Medium":      "m",
		"s":           "s",
		"X-Small":     "xs",
		"  L ":        "l",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSize(in), "input %q", in)
	}
}

func TestNormalizeSizeUnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "UNKNOWN", NormalizeSize("UNKNOWN"))
	assert.Equal(t, "38", NormalizeSize(" 38 "))
	assert.Equal(t, "", NormalizeSize("   "))
}

func TestNormalizeSizeIdempotent(t *testing.T) {
	for _, s := range []string{"Extra Large", "xxl", "m", "Onesize"} {
		once := NormalizeSize(s)
		assert.Equal(t, once, NormalizeSize(once), "input %q", s)
	}
}

func TestSizeRankOrdersCanonicalSizes(t *testing.T) {
	assert.True(t, sizeRank("xs") < sizeRank("s"))
	assert.True(t, sizeRank("s") < sizeRank("m"))
	assert.True(t, sizeRank("xl") < sizeRank("2xl"))
	// unknown tokens sort after everything known
	assert.Equal(t, len(SizeOrder), sizeRank("38"))
}

func TestStripLeadingBrand(t *testing.T) {
	assert.Equal(t, "Floral Wrap Dress", StripLeadingBrand("Zummer Floral Wrap Dress", "zummer"))
	assert.Equal(t, "Floral Wrap Dress", StripLeadingBrand("ZUMMER - Floral Wrap Dress", "zummer"))
	assert.Equal(t, "Floral Wrap Dress", StripLeadingBrand("zummer: Floral Wrap Dress", "Zummer"))
	// only a leading token is stripped, and only on a word boundary
	assert.Equal(t, "Summery Zummer Dress", StripLeadingBrand("Summery Zummer Dress", "zummer"))
	assert.Equal(t, "Zummerland Dress", StripLeadingBrand("Zummerland Dress", "zummer"))
	assert.Equal(t, "Dress", StripLeadingBrand("Dress", ""))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "floral-wrap-dress", Slugify("Floral Wrap Dress"))
	assert.Equal(t, "a-b-c", Slugify("  A -- b__ C !!"))
	assert.Equal(t, "sku-1234", Slugify("SKU/1234"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestNormalizeExcelInt(t *testing.T) {
	assert.Equal(t, "5225", NormalizeExcelInt("5225.0"))
	assert.Equal(t, "5225", NormalizeExcelInt("5225.000"))
	assert.Equal(t, "5225", NormalizeExcelInt(" 5225 "))
	// non-integer values stay untouched
	assert.Equal(t, "5225.5", NormalizeExcelInt("5225.5"))
	assert.Equal(t, "AB-123", NormalizeExcelInt("AB-123"))
}
