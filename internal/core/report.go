package core

// AnnualReportEntry is one month of a wallet's annual report.
type AnnualReportEntry struct {
	FinalBalance string `json:"final_balance"`
	Month        string `json:"month"`
	Income       string `json:"income"`
	Outcome      string `json:"outcome"`
}

// SubtypeTotal is a per-category slice of a monthly report.
type SubtypeTotal struct {
	Total      string          `json:"total"`
	Type       TransactionType `json:"type"`
	Subtype    string          `json:"subtype"`
	Percentage string          `json:"percentage"`
}

// MonthReport is a wallet's breakdown for a single month.
type MonthReport struct {
	FinalBalance string         `json:"final_balance"`
	TotalIncome  string         `json:"total_income"`
	TotalOutcome string         `json:"total_outcome"`
	Subtypes     []SubtypeTotal `json:"subtypes"`
	Transactions []Transaction  `json:"transactions"`
}
