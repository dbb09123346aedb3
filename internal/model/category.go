package model

import "slices"

// TransactionType is the top-level bucket a transaction belongs to.
type TransactionType string

// Transaction type constants.
const (
	TypeIncome    TransactionType = "income"
	TypeSavings   TransactionType = "savings"
	TypeInvesting TransactionType = "investing"
	TypeBills     TransactionType = "bills"
	TypeExpense   TransactionType = "expense"
)

// Label returns the capitalized name used in prompts and CLI output.
func (t TransactionType) Label() string {
	switch t {
	case TypeIncome:
		return "Income"
	case TypeSavings:
		return "Savings"
	case TypeInvesting:
		return "Investing"
	case TypeBills:
		return "Bills"
	case TypeExpense:
		return "Expense"
	default:
		return string(t)
	}
}

// transactionTypes is ordered the way the types are presented to the model.
var transactionTypes = []TransactionType{
	TypeIncome,
	TypeSavings,
	TypeInvesting,
	TypeBills,
	TypeExpense,
}

// taxonomy maps each type to its allowed categories, in presentation order.
var taxonomy = map[TransactionType][]string{
	TypeIncome: {
		"Work",
		"Other",
	},
	TypeSavings: {
		"Wealthfront",
	},
	TypeInvesting: {
		"Fidelity",
	},
	TypeBills: {
		"Parents",
		"Wifi",
		"Gym",
		"Subscriptions",
	},
	TypeExpense: {
		"Eating Out",
		"Shopping",
		"Activity",
		"Grocery",
		"Gas",
		"School",
		"Other",
	},
}

// TransactionTypes returns all transaction types in presentation order.
func TransactionTypes() []TransactionType {
	return slices.Clone(transactionTypes)
}

// CategoriesFor returns a copy of the categories allowed for the given type.
// Unknown types yield nil.
func CategoriesFor(t TransactionType) []string {
	return slices.Clone(taxonomy[t])
}

// IsValidType reports whether s names one of the five transaction types.
func IsValidType(s string) bool {
	return slices.Contains(transactionTypes, TransactionType(s))
}

// HasCategory reports whether category belongs to the list for t.
func HasCategory(t TransactionType, category string) bool {
	return slices.Contains(taxonomy[t], category)
}
