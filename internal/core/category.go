package core

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	incomeCategories = []string{"salary", "freelance", "investments", "gifts", "other"}

	expenseCategories = []string{
		"food-dining", "transportation", "utilities", "housing",
		"entertainment", "healthcare", "education", "shopping", "other",
	}

	titleCaser = cases.Title(language.English)
)

// Categories returns the category vocabulary for a transaction type.
func Categories(t TransactionType) []string {
	switch t {
	case Income:
		return slices.Clone(incomeCategories)
	case Expense:
		return slices.Clone(expenseCategories)
	}
	return nil
}

// ValidCategory reports whether category belongs to the vocabulary of t.
func ValidCategory(t TransactionType, category string) bool {
	switch t {
	case Income:
		return slices.Contains(incomeCategories, category)
	case Expense:
		return slices.Contains(expenseCategories, category)
	}
	return false
}

// CategoryDisplayName renders a slug like "food-dining" as "Food Dining".
func CategoryDisplayName(slug string) string {
	return titleCaser.String(strings.ReplaceAll(slug, "-", " "))
}
