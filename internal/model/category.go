package model

// Category is one of the closed set of expense categories the classifier is
// allowed to emit. The string values are part of the oracle contract and are
// consumed verbatim by downstream display grouping.
type Category string

const (
	CategoryTravel    Category = "Travel"
	CategoryMeals     Category = "Meals"
	CategoryOffice    Category = "Office"
	CategorySoftware  Category = "Software"
	CategoryUtilities Category = "Utilities"
	CategoryOther     Category = "Other"
)

// Categories returns the closed category set in display order.
func Categories() []Category {
	return []Category{
		CategoryTravel,
		CategoryMeals,
		CategoryOffice,
		CategorySoftware,
		CategoryUtilities,
		CategoryOther,
	}
}

// ValidCategory reports whether name is a member of the closed category set.
// The check is case-sensitive: the contract requires exact string values.
func ValidCategory(name string) bool {
	switch Category(name) {
	case CategoryTravel, CategoryMeals, CategoryOffice,
		CategorySoftware, CategoryUtilities, CategoryOther:
		return true
	}
	return false
}
