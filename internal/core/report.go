package core

// CategoryTotal is an amount aggregated under one category label.
type CategoryTotal struct {
	Category string
	Total    Money
}

// Report is a filtered expense listing plus its sum.
type Report struct {
	Expenses []Expense
	Total    Money
}

// Dashboard is the full listing with every derived aggregate.
type Dashboard struct {
	Expenses     []Expense
	ByCategory   []CategoryTotal
	TotalExpense Money
	TotalIncome  Money
}

// Analysis is the grand total with an ordered category breakdown.
type Analysis struct {
	Total      Money
	ByCategory []CategoryTotal
}
