package entities

import "fmt"

// BedCategory is a kind of bed tracked per facility.
type BedCategory string

const (
	BedCategoryGeneral BedCategory = "general"
	BedCategoryOxygen  BedCategory = "oxygen"
	BedCategoryICU     BedCategory = "icu"
)

// BedCategories lists every tracked category in display order.
var BedCategories = []BedCategory{BedCategoryGeneral, BedCategoryOxygen, BedCategoryICU}

// ParseBedCategory accepts the category names used by the mobile client.
func ParseBedCategory(s string) (BedCategory, error) {
	switch s {
	case "general", "General", "GENERAL":
		return BedCategoryGeneral, nil
	case "oxygen", "Oxygen", "OXYGEN":
		return BedCategoryOxygen, nil
	case "icu", "ICU", "Icu":
		return BedCategoryICU, nil
	}
	return "", fmt.Errorf("unknown bed category %q", s)
}

// BedCount is the capacity of one category. Available <= Total by convention;
// the store enforces it, not this type.
type BedCount struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// BedInventory holds the counts for every category.
type BedInventory struct {
	General BedCount `json:"general"`
	Oxygen  BedCount `json:"oxygen"`
	ICU     BedCount `json:"icu"`
}

// Get returns the count for a category.
func (b BedInventory) Get(c BedCategory) BedCount {
	switch c {
	case BedCategoryOxygen:
		return b.Oxygen
	case BedCategoryICU:
		return b.ICU
	default:
		return b.General
	}
}

// Set replaces the count for a category.
func (b *BedInventory) Set(c BedCategory, count BedCount) {
	switch c {
	case BedCategoryOxygen:
		b.Oxygen = count
	case BedCategoryICU:
		b.ICU = count
	default:
		b.General = count
	}
}

// IsZero reports whether no category has any capacity recorded.
func (b BedInventory) IsZero() bool {
	return b == BedInventory{}
}

// Validate checks the non-negative and available <= total rules.
func (b BedInventory) Validate() error {
	for _, c := range BedCategories {
		count := b.Get(c)
		if count.Total < 0 || count.Available < 0 {
			return fmt.Errorf("%s beds must not be negative", c)
		}
		if count.Available > count.Total {
			return fmt.Errorf("%s available beds (%d) exceed total (%d)", c, count.Available, count.Total)
		}
	}
	return nil
}
