package transform

import "strings"

// DefaultCategory is used when no article-type mapping applies.
const DefaultCategory = "Apparel & Accessories > Clothing"

// categoryMap maps source article types to Google product taxonomy paths.
// The path strings are an external contract with Shopify and must be
// reproduced verbatim.
var categoryMap = map[string]string{
	"dresses":     "Apparel & Accessories > Clothing > Dresses",
	"dress":       "Apparel & Accessories > Clothing > Dresses",
	"shirt":       "Apparel & Accessories > Clothing > Clothing Tops > Shirts",
	"shirts":      "Apparel & Accessories > Clothing > Clothing Tops > Shirts",
	"blouse":      "Apparel & Accessories > Clothing > Clothing Tops > Blouses",
	"blouses":     "Apparel & Accessories > Clothing > Clothing Tops > Blouses",
	"t-shirt":     "Apparel & Accessories > Clothing > Clothing Tops > T-Shirts",
	"t-shirts":    "Apparel & Accessories > Clothing > Clothing Tops > T-Shirts",
	"tee":         "Apparel & Accessories > Clothing > Clothing Tops > T-Shirts",
	"polo":        "Apparel & Accessories > Clothing > Clothing Tops > Polos",
	"polos":       "Apparel & Accessories > Clothing > Clothing Tops > Polos",
	"tank top":    "Apparel & Accessories > Clothing > Clothing Tops > Tank Tops",
	"tank tops":   "Apparel & Accessories > Clothing > Clothing Tops > Tank Tops",
	"sweatshirt":  "Apparel & Accessories > Clothing > Clothing Tops > Sweatshirts",
	"sweatshirts": "Apparel & Accessories > Clothing > Clothing Tops > Sweatshirts",
	"cardigan":    "Apparel & Accessories > Clothing > Clothing Tops > Cardigans",
	"cardigans":   "Apparel & Accessories > Clothing > Clothing Tops > Cardigans",
	"overshirt":   "Apparel & Accessories > Clothing > Clothing Tops > Overshirts",
	"overshirts":  "Apparel & Accessories > Clothing > Clothing Tops > Overshirts",
	"bodysuit":    "Apparel & Accessories > Clothing > Clothing Tops > Bodysuits",
	"bodysuits":   "Apparel & Accessories > Clothing > Clothing Tops > Bodysuits",
	"outfit sets": "Apparel & Accessories > Clothing > Outfit Sets",
	"coord":       "Apparel & Accessories > Clothing > Outfit Sets",
	"co-ord":      "Apparel & Accessories > Clothing > Outfit Sets",
	"co-ords":     "Apparel & Accessories > Clothing > Outfit Sets",
	// Bottoms
	"jeans":       "Apparel & Accessories > Clothing > Pants > Jeans",
	"jeggings":    "Apparel & Accessories > Clothing > Pants > Jeggings",
	"trousers":    "Apparel & Accessories > Clothing > Pants > Trousers",
	"cargo pants": "Apparel & Accessories > Clothing > Pants > Cargo Pants",
	"chinos":      "Apparel & Accessories > Clothing > Pants > Chinos",
	"joggers":     "Apparel & Accessories > Clothing > Pants > Joggers",
	"leggings":    "Apparel & Accessories > Clothing > Pants > Leggings",
	"pants":       "Apparel & Accessories > Clothing > Pants",
	// Tops umbrella
	"tops": "Apparel & Accessories > Clothing > Clothing Tops",
}

var typeMap = map[string]string{
	"dresses":     "DRESS",
	"dress":       "DRESS",
	"shirt":       "Shirt",
	"shirts":      "Shirt",
	"top":         "Top",
	"blouse":      "Top",
	"t-shirt":     "T-Shirt",
	"t-shirts":    "T-Shirt",
	"tee":         "T-Shirt",
	"polo":        "Polo",
	"polos":       "Polo",
	"tank top":    "Tank Top",
	"tank tops":   "Tank Top",
	"sweatshirt":  "Sweatshirt",
	"sweatshirts": "Sweatshirt",
	"cardigan":    "Cardigan",
	"cardigans":   "Cardigan",
	"overshirt":   "Overshirt",
	"overshirts":  "Overshirt",
	"bodysuit":    "Bodysuit",
	"bodysuits":   "Bodysuit",
	"outfit sets": "Co-Ord",
	"coord":       "Co-Ord",
	"co-ord":      "Co-Ord",
	"co-ords":     "Co-Ord",
	// Bottoms
	"jeans":       "Jeans",
	"jeggings":    "Jeggings",
	"trousers":    "Trousers",
	"cargo pants": "Cargo Pants",
	"chinos":      "Chinos",
	"joggers":     "Joggers",
	"leggings":    "Leggings",
	"pants":       "Pants",
	// Tops umbrella
	"tops": "Top",
}

var sourceKindAliases = map[string]string{
	"shirt":    "shirt",
	"shirts":   "shirt",
	"top":      "tops",
	"tops":     "tops",
	"dress":    "dress",
	"dresses":  "dress",
	"co-ord":   "co-ord",
	"co-ords":  "co-ords",
	"coord":    "co-ord",
	"coords":   "co-ords",
	"jean":     "jeans",
	"jeans":    "jeans",
	"jeggings": "jeggings",
	"trouser":  "trousers",
	"trousers": "trousers",
	"pant":     "pants",
	"pants":    "pants",
}

func anyIn(s string, keys ...string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// InferCategory resolves a taxonomy path from the article type, falling
// back to title keywords and finally the default category. The second
// return value is false when the default was used.
func InferCategory(articleType, title string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(articleType))
	if c, ok := categoryMap[t]; ok {
		return c, true
	}
	ttl := strings.ToLower(title)
	switch {
	case anyIn(ttl, "co-ord", "co ord", "co-ords", "co ords", "coord", "coords", "outfit set", "outfit sets"):
		return categoryMap["co-ord"], true
	case strings.Contains(ttl, "polo"):
		return categoryMap["polo"], true
	case anyIn(ttl, "t-shirt", "tshirt", "tee"):
		return categoryMap["t-shirt"], true
	case strings.Contains(ttl, "shirt"):
		return categoryMap["shirt"], true
	case strings.Contains(ttl, "blouse"):
		return categoryMap["blouse"], true
	case strings.Contains(ttl, "dress"):
		return categoryMap["dress"], true
	}
	return DefaultCategory, false
}

// InferType resolves the Shopify product type from the article type or
// title keywords.
func InferType(articleType, title string) string {
	t := strings.ToLower(strings.TrimSpace(articleType))
	if ty, ok := typeMap[t]; ok {
		return ty
	}
	ttl := strings.ToLower(title)
	switch {
	case anyIn(ttl, "co-ord", "co ord", "co-ords", "co ords", "coord", "coords", "outfit set", "outfit sets"):
		return "Co-Ord"
	case strings.Contains(ttl, "dress"):
		return "DRESS"
	case anyIn(ttl, "shirt", "t-shirt", "tshirt", "tee", "polo", "blouse", "top"):
		return "Top"
	}
	if at := strings.TrimSpace(articleType); at != "" {
		return titleCase(at)
	}
	return "Top"
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// MapFromSourceKind resolves (category, type, mapped) from the workbook
// sheet name first, then article type and title. Sheet names carry the
// coarse product family; titles refine it (e.g. a "tops" sheet row whose
// title says "polo" maps to Polos).
func MapFromSourceKind(sourceKind, articleType, title string) (string, string, bool) {
	sk := strings.ToLower(strings.TrimSpace(sourceKind))

	// Umbrella sheet kinds always go through title refinement below, even
	// though they are valid map keys in their own right.
	umbrella := sk == "tops" || sk == "top" || sk == "pants" || sk == "pant"
	if !umbrella {
		if c, ok := categoryMap[sk]; ok {
			if ty, ok2 := typeMap[sk]; ok2 {
				return c, ty, true
			}
		}
		if tgt, ok := sourceKindAliases[sk]; ok {
			if c, ok2 := categoryMap[tgt]; ok2 {
				if ty, ok3 := typeMap[tgt]; ok3 {
					return c, ty, true
				}
			}
		}
	}

	haystack := strings.ToLower(title) + " " + strings.ToLower(articleType)

	if sk == "tops" || sk == "top" {
		switch {
		case anyIn(haystack, "t-shirt", "tshirt", "tee"):
			return categoryMap["t-shirt"], typeMap["t-shirt"], true
		case anyIn(haystack, "polo"):
			return categoryMap["polo"], typeMap["polo"], true
		case anyIn(haystack, "tank"):
			return categoryMap["tank top"], typeMap["tank top"], true
		case anyIn(haystack, "bodysuit"):
			return categoryMap["bodysuit"], typeMap["bodysuit"], true
		case anyIn(haystack, "cardigan"):
			return categoryMap["cardigan"], typeMap["cardigan"], true
		case anyIn(haystack, "sweatshirt"):
			return categoryMap["sweatshirt"], typeMap["sweatshirt"], true
		case anyIn(haystack, "overshirt"):
			return categoryMap["overshirt"], typeMap["overshirt"], true
		case anyIn(haystack, "shirt"):
			return categoryMap["shirt"], typeMap["shirt"], true
		}
		return categoryMap["tops"], typeMap["top"], true
	}

	if sk == "pants" || sk == "pant" {
		switch {
		case anyIn(haystack, "jean"):
			return categoryMap["jeans"], typeMap["jeans"], true
		case anyIn(haystack, "jegging"):
			return categoryMap["jeggings"], typeMap["jeggings"], true
		case anyIn(haystack, "trouser"):
			return categoryMap["trousers"], typeMap["trousers"], true
		case anyIn(haystack, "cargo"):
			return categoryMap["cargo pants"], typeMap["cargo pants"], true
		case anyIn(haystack, "chino"):
			return categoryMap["chinos"], typeMap["chinos"], true
		case anyIn(haystack, "jogger"):
			return categoryMap["joggers"], typeMap["joggers"], true
		case anyIn(haystack, "legging"):
			return categoryMap["leggings"], typeMap["leggings"], true
		}
		return categoryMap["pants"], typeMap["pants"], true
	}

	category, mapped := InferCategory(articleType, title)
	return category, InferType(articleType, title), mapped
}
