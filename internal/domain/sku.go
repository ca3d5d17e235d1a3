package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxSKULength matches the width of products.sku.
const MaxSKULength = 32

var (
	camelBoundary = regexp.MustCompile(`([A-Za-z])([A-Z])`)
	wordStart     = regexp.MustCompile(`\b\w`)
)

// GenerateSKU derives a product SKU from the supplier name, the product name
// and the category: "TestCia", "Product X", Science -> "TC1-PX".
func GenerateSKU(supplierName, productName string, category Category) string {
	sku := initials(supplierName) + strconv.Itoa(int(category)) + "-" + initials(productName)
	if len(sku) > MaxSKULength {
		sku = sku[:MaxSKULength]
	}
	return sku
}

func initials(text string) string {
	separated := camelBoundary.ReplaceAllString(text, "$1 $2")

	var b strings.Builder
	for _, letter := range wordStart.FindAllString(separated, -1) {
		b.WriteString(strings.ToUpper(letter))
	}
	return b.String()
}
