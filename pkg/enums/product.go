package enums

import (
	"fmt"
	"strings"
)

// ProductCategory separates stocked goods from non-inventoried services
// (warranties, licences, care packs).
type ProductCategory string

const (
	ProductCategoryPhysical ProductCategory = "physical"
	ProductCategoryService  ProductCategory = "service"
)

var validProductCategories = []ProductCategory{
	ProductCategoryPhysical,
	ProductCategoryService,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsInventoried reports whether stock is tracked for the category.
func (c ProductCategory) IsInventoried() bool {
	return c != ProductCategoryService
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// ShippingMode decides where the distributor delivers goods.
type ShippingMode string

const (
	ShippingModeWarehouse ShippingMode = "warehouse"
	ShippingModeDropship  ShippingMode = "dropship"
)

// String implements fmt.Stringer.
func (m ShippingMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ShippingMode.
func (m ShippingMode) IsValid() bool {
	return m == ShippingModeWarehouse || m == ShippingModeDropship
}

// ParseShippingMode converts raw input into a ShippingMode, accepting any case.
func ParseShippingMode(value string) (ShippingMode, error) {
	mode := ShippingMode(strings.ToLower(strings.TrimSpace(value)))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid shipping mode %q", value)
	}
	return mode, nil
}
