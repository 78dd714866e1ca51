package cart

import (
	"strconv"
	"strings"
)

// Cart line keys look like "productId:variantId" or
// "productId:variantId:size". Carts written before variants existed hold
// bare "productId" keys; those parse with variant 0 and no size.

const (
	keySep = ":"
	// maxSizeLen caps the size segment, in codepoints.
	maxSizeLen = 50
)

// Line is a decoded cart line key. VariantID 0 means "no explicit variant,
// resolve the product default".
type Line struct {
	ProductID    uint
	VariantID    uint
	SelectedSize string
}

// BuildKey encodes a cart line key. The size segment is omitted entirely
// when empty; product and variant are always present.
func BuildKey(productID, variantID uint, size string) string {
	key := strconv.FormatUint(uint64(productID), 10) + keySep + strconv.FormatUint(uint64(variantID), 10)
	if s := SanitizeSize(size); s != "" {
		key += keySep + s
	}
	return key
}

// ParseKey decodes a cart line key. It never fails: malformed segments
// decode to zero/empty so a corrupted session cart degrades to a droppable
// line instead of breaking checkout.
func ParseKey(key string) Line {
	parts := strings.SplitN(key, keySep, 3)

	var line Line
	line.ProductID = parseID(parts[0])
	if len(parts) > 1 {
		line.VariantID = parseID(parts[1])
	}
	if len(parts) > 2 {
		line.SelectedSize = SanitizeSize(parts[2])
	}
	return line
}

// SanitizeSize normalizes a free-text size: trim, collapse inner whitespace,
// strip the key separator (to block key injection), cap the length.
func SanitizeSize(size string) string {
	s := strings.Join(strings.Fields(size), " ")
	s = strings.ReplaceAll(s, keySep, "-")
	if r := []rune(s); len(r) > maxSizeLen {
		s = string(r[:maxSizeLen])
	}
	return s
}

func parseID(s string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return uint(n)
}
