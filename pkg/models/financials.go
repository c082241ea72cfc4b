package models

import (
	"math"
	"time"
)

// FinancialSnapshot is one fiscal period of statement data, already resolved from the
// provider's loosely typed records. Field aliases (totalEquity, weightedAverageShsOutDil ...)
// are settled at the fetch boundary, never inside the valuation models.
type FinancialSnapshot struct {
	Date time.Time `json:"date"`

	// Income Statement
	Revenue                      float64 `json:"revenue"`
	GrossProfit                  float64 `json:"gross_profit"`
	OperatingIncome              float64 `json:"operating_income"`
	NetIncome                    float64 `json:"net_income"`
	EPS                          float64 `json:"eps"`
	EPSDiluted                   float64 `json:"eps_diluted"`
	WeightedAverageShares        float64 `json:"weighted_average_shares"`
	WeightedAverageSharesDiluted float64 `json:"weighted_average_shares_diluted"`

	// Cash Flow
	OperatingCashFlow float64 `json:"operating_cash_flow"`
	FreeCashFlow      float64 `json:"free_cash_flow"`
	DebtRepayment     float64 `json:"debt_repayment"` // usually reported negative
	NetBorrowings     float64 `json:"net_borrowings"`

	// Balance Sheet
	TotalAssets             float64 `json:"total_assets"`
	TotalLiabilities        float64 `json:"total_liabilities"`
	TotalStockholdersEquity float64 `json:"total_stockholders_equity"`
	CashAndCashEquivalents  float64 `json:"cash_and_cash_equivalents"`
	TotalDebt               float64 `json:"total_debt"`

	// Derived: eps x payoutRatio
	DividendPerShare float64 `json:"dividend_per_share"`

	// Period multiples (ratios endpoint)
	PriceEarningsRatio float64 `json:"price_earnings_ratio"`
	PriceToBookRatio   float64 `json:"price_to_book_ratio"`
}

// Shares returns diluted weighted shares, falling back to basic.
func (s FinancialSnapshot) Shares() float64 {
	if s.WeightedAverageSharesDiluted > 0 {
		return s.WeightedAverageSharesDiluted
	}
	return s.WeightedAverageShares
}

// BookValuePerShare returns equity per share, or 0 when equity or shares are not positive.
func (s FinancialSnapshot) BookValuePerShare() float64 {
	shares := s.Shares()
	if s.TotalStockholdersEquity <= 0 || shares <= 0 {
		return 0
	}
	return s.TotalStockholdersEquity / shares
}

// FCFE = FCF + NetBorrowings - |DebtRepayment|
func (s FinancialSnapshot) FCFE() float64 {
	return s.FreeCashFlow + s.NetBorrowings - math.Abs(s.DebtRepayment)
}

// DividendRecord is a single dividend payment per share.
type DividendRecord struct {
	Date     time.Time `json:"date"`
	Dividend float64   `json:"dividend"`
}

// FinancialHistory bundles everything the engine reads for one company.
// Snapshots and Dividends are ordered newest first.
type FinancialHistory struct {
	Ticker    string              `json:"ticker"`
	Currency  string              `json:"currency,omitempty"`
	Snapshots []FinancialSnapshot `json:"snapshots"`
	Dividends []DividendRecord    `json:"dividends,omitempty"`
}

// Latest returns the head of the snapshot sequence.
func (h FinancialHistory) Latest() (FinancialSnapshot, bool) {
	if len(h.Snapshots) == 0 {
		return FinancialSnapshot{}, false
	}
	return h.Snapshots[0], true
}

// Series extracts one metric from every snapshot, preserving order.
func (h FinancialHistory) Series(metric func(FinancialSnapshot) float64) []float64 {
	out := make([]float64, len(h.Snapshots))
	for i, s := range h.Snapshots {
		out[i] = metric(s)
	}
	return out
}

// DividendAmounts returns the dividend values, newest first.
func (h FinancialHistory) DividendAmounts() []float64 {
	out := make([]float64, len(h.Dividends))
	for i, d := range h.Dividends {
		out[i] = d.Dividend
	}
	return out
}
