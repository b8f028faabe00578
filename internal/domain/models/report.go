package models

// Summary aggregates every stored quote.
type Summary struct {
	TotalRevenue float64 `json:"total_revenue"`
	Count        int     `json:"count"`
	Average      float64 `json:"average"`
}

// MonthlyRevenue is the revenue of one calendar month.
type MonthlyRevenue struct {
	Month   int     `json:"month"`
	Year    int     `json:"year"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}
