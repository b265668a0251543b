package core

// expenseCategories is informational only; categories stay free-form.
var expenseCategories = []string{
	"Mortgage", "Utilities", "Insurance", "Property Tax", "Maintenance",
	"Repairs", "Improvements", "HOA Fees", "Landscaping", "Pest Control",
	"Cleaning", "Furnishings", "Appliances", "Other",
}

// ExpenseCategories returns a copy of the known expense categories.
func ExpenseCategories() []string {
	return append([]string(nil), expenseCategories...)
}
