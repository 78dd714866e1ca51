package cart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "42:7", BuildKey(42, 7, ""))
	assert.Equal(t, "42:7:XL", BuildKey(42, 7, "XL"))
	assert.Equal(t, "42:0", BuildKey(42, 0, "   "))
}

func TestParseKeyRoundTrip(t *testing.T) {
	cases := []struct {
		productID uint
		variantID uint
		size      string
	}{
		{1, 0, ""},
		{42, 7, "XL"},
		{42, 7, "  eu  42 "},
		{99999, 12345, "One Size"},
	}
	for _, tc := range cases {
		got := ParseKey(BuildKey(tc.productID, tc.variantID, tc.size))
		assert.Equal(t, tc.productID, got.ProductID)
		assert.Equal(t, tc.variantID, got.VariantID)
		assert.Equal(t, SanitizeSize(tc.size), got.SelectedSize)
	}
}

func TestParseKeyLegacy(t *testing.T) {
	got := ParseKey("42")
	assert.Equal(t, uint(42), got.ProductID)
	assert.Equal(t, uint(0), got.VariantID)
	assert.Equal(t, "", got.SelectedSize)
}

func TestParseKeyMalformed(t *testing.T) {
	// Parsing never fails; garbage decodes to zero values so the caller can
	// drop the line.
	assert.Equal(t, Line{}, ParseKey(""))
	assert.Equal(t, Line{}, ParseKey("abc"))
	assert.Equal(t, Line{}, ParseKey(":::"))
	assert.Equal(t, Line{VariantID: 2}, ParseKey("-1:2"))
	assert.Equal(t, Line{ProductID: 1}, ParseKey("1:abc"))
}

func TestSanitizeSize(t *testing.T) {
	assert.Equal(t, "", SanitizeSize("   "))
	assert.Equal(t, "a b", SanitizeSize(" a \t\n b "))
	// The separator cannot be injected through the size segment.
	assert.Equal(t, "xl-tall", SanitizeSize("xl:tall"))
	long := strings.Repeat("é", 80)
	assert.Equal(t, 50, len([]rune(SanitizeSize(long))))
}
