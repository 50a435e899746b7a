package transform

import (
	"regexp"
	"strings"
	"unicode"
)

// sizeSynonyms maps raw size tokens (lowercased) to the canonical set.
var sizeSynonyms = map[string]string{
	"xx-small": "xs", "x-small": "xs", "xs": "xs", "extra small": "xs",
	"s": "s", "small": "s",
	"m": "m", "medium": "m",
	"l": "l", "large": "l",
	"xl": "xl", "x-large": "xl", "extra large": "xl",
	"xxl": "2xl", "2xl": "2xl", "xx-large": "2xl",
}

// SizeOrder is the canonical variant ordering within a product.
var SizeOrder = []string{"xs", "s", "m", "l", "xl", "2xl"}

// sizeRank returns the position of a normalized size in the canonical
// ordering, or len(SizeOrder) for unrecognized tokens so they sort after
// all known sizes.
func sizeRank(size string) int {
	for i, s := range SizeOrder {
		if s == size {
			return i
		}
	}
	return len(SizeOrder)
}

// NormalizeSize maps a raw size token to the canonical set. Unrecognized
// tokens are returned unchanged (trimmed); the caller counts them.
// Normalization is idempotent: canonical tokens map to themselves.
func NormalizeSize(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return ""
	}
	if canonical, ok := sizeSynonyms[key]; ok {
		return canonical
	}
	return strings.TrimSpace(s)
}

// IsCanonicalSize reports whether the token belongs to the canonical set.
func IsCanonicalSize(s string) bool {
	_, ok := sizeSynonyms[strings.ToLower(s)]
	return ok && sizeSynonyms[strings.ToLower(s)] == strings.ToLower(s)
}

// StripLeadingBrand removes a leading brand token from text, matched
// case-insensitively on a word boundary, plus any separator run after it.
func StripLeadingBrand(text, brand string) string {
	if text == "" || brand == "" {
		return strings.TrimSpace(text)
	}
	re, err := regexp.Compile(`(?i)^\s*` + regexp.QuoteMeta(brand) + `\b[\s\-_:]*`)
	if err != nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(re.ReplaceAllString(text, ""))
}

// Slugify converts a string into a Shopify handle segment: ASCII
// lowercase with non-alphanumeric runs collapsed to single hyphens.
func Slugify(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

var excelIntRe = regexp.MustCompile(`^(\d+)(?:\.0+)?$`)

// NormalizeExcelInt collapses Excel float formatting of integer ids,
// e.g. "5225.0" -> "5225".
func NormalizeExcelInt(s string) string {
	s = strings.TrimSpace(s)
	if m := excelIntRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
