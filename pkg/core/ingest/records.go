package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"intrinsic_valuation/pkg/models"
)

// ErrNoData is returned when FMP answers 200 with an empty list.
var ErrNoData = errors.New("no data returned")

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" || s == "N/A" || s == "None" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// =============================================================================
// FMP RECORD SHAPES
// =============================================================================

type incomeRecord struct {
	Date                     string      `json:"date"`
	ReportedCurrency         string      `json:"reportedCurrency"`
	Revenue                  flexFloat64 `json:"revenue"`
	GrossProfit              flexFloat64 `json:"grossProfit"`
	OperatingIncome          flexFloat64 `json:"operatingIncome"`
	NetIncome                flexFloat64 `json:"netIncome"`
	EPS                      flexFloat64 `json:"eps"`
	EPSDiluted               flexFloat64 `json:"epsdiluted"`
	WeightedAverageShsOut    flexFloat64 `json:"weightedAverageShsOut"`
	WeightedAverageShsOutDil flexFloat64 `json:"weightedAverageShsOutDil"`
}

type balanceRecord struct {
	Date                    string      `json:"date"`
	TotalAssets             flexFloat64 `json:"totalAssets"`
	TotalLiabilities        flexFloat64 `json:"totalLiabilities"`
	TotalStockholdersEquity flexFloat64 `json:"totalStockholdersEquity"`
	TotalEquity             flexFloat64 `json:"totalEquity"`
	CashAndCashEquivalents  flexFloat64 `json:"cashAndCashEquivalents"`
	TotalDebt               flexFloat64 `json:"totalDebt"`
}

type cashFlowRecord struct {
	Date              string      `json:"date"`
	OperatingCashFlow flexFloat64 `json:"operatingCashFlow"`
	FreeCashFlow      flexFloat64 `json:"freeCashFlow"`
	DebtRepayment     flexFloat64 `json:"debtRepayment"`
	NetBorrowings     flexFloat64 `json:"netBorrowings"`
}

type ratiosRecord struct {
	Date               string      `json:"date"`
	PriceEarningsRatio flexFloat64 `json:"priceEarningsRatio"`
	PriceToBookRatio   flexFloat64 `json:"priceToBookRatio"`
	PayoutRatio        flexFloat64 `json:"payoutRatio"`
}

type quoteRecord struct {
	Symbol string      `json:"symbol"`
	Name   string      `json:"name"`
	Price  flexFloat64 `json:"price"`
}

type dividendRecord struct {
	Date        string      `json:"date"`
	Dividend    flexFloat64 `json:"dividend"`
	AdjDividend flexFloat64 `json:"adjDividend"`
}

type dividendResponse struct {
	Symbol     string           `json:"symbol"`
	Historical []dividendRecord `json:"historical"`
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

// firstNonZero resolves field aliases: the first non-zero candidate wins.
func firstNonZero(values ...flexFloat64) float64 {
	for _, v := range values {
		if v != 0 {
			return float64(v)
		}
	}
	return 0
}

// mergeStatements joins the statements on period date. The income statement
// defines the periods; missing counterparts leave their fields at zero.
func mergeStatements(ticker string, income []incomeRecord, balance []balanceRecord, cashFlow []cashFlowRecord, ratios []ratiosRecord, dividends []dividendRecord) models.FinancialHistory {
	balanceByDate := make(map[string]balanceRecord, len(balance))
	for _, b := range balance {
		balanceByDate[b.Date] = b
	}
	cashByDate := make(map[string]cashFlowRecord, len(cashFlow))
	for _, cf := range cashFlow {
		cashByDate[cf.Date] = cf
	}
	ratiosByDate := make(map[string]ratiosRecord, len(ratios))
	for _, r := range ratios {
		ratiosByDate[r.Date] = r
	}

	history := models.FinancialHistory{Ticker: strings.ToUpper(ticker)}
	for _, inc := range income {
		if history.Currency == "" {
			history.Currency = inc.ReportedCurrency
		}
		b := balanceByDate[inc.Date]
		cf := cashByDate[inc.Date]
		r := ratiosByDate[inc.Date]

		eps := firstNonZero(inc.EPS, inc.EPSDiluted)
		snap := models.FinancialSnapshot{
			Date:                         parseDate(inc.Date),
			Revenue:                      float64(inc.Revenue),
			GrossProfit:                  float64(inc.GrossProfit),
			OperatingIncome:              float64(inc.OperatingIncome),
			NetIncome:                    float64(inc.NetIncome),
			EPS:                          eps,
			EPSDiluted:                   firstNonZero(inc.EPSDiluted, inc.EPS),
			WeightedAverageShares:        firstNonZero(inc.WeightedAverageShsOut, inc.WeightedAverageShsOutDil),
			WeightedAverageSharesDiluted: float64(inc.WeightedAverageShsOutDil),
			OperatingCashFlow:            float64(cf.OperatingCashFlow),
			FreeCashFlow:                 float64(cf.FreeCashFlow),
			DebtRepayment:                float64(cf.DebtRepayment),
			NetBorrowings:                float64(cf.NetBorrowings),
			TotalAssets:                  float64(b.TotalAssets),
			TotalLiabilities:             float64(b.TotalLiabilities),
			TotalStockholdersEquity:      firstNonZero(b.TotalStockholdersEquity, b.TotalEquity),
			CashAndCashEquivalents:       float64(b.CashAndCashEquivalents),
			TotalDebt:                    float64(b.TotalDebt),
			DividendPerShare:             eps * float64(r.PayoutRatio),
			PriceEarningsRatio:           float64(r.PriceEarningsRatio),
			PriceToBookRatio:             float64(r.PriceToBookRatio),
		}
		if snap.DividendPerShare < 0 {
			snap.DividendPerShare = 0
		}
		history.Snapshots = append(history.Snapshots, snap)
	}
	sort.SliceStable(history.Snapshots, func(i, j int) bool {
		return history.Snapshots[i].Date.After(history.Snapshots[j].Date)
	})

	for _, d := range dividends {
		amount := firstNonZero(d.Dividend, d.AdjDividend)
		if amount <= 0 {
			continue
		}
		history.Dividends = append(history.Dividends, models.DividendRecord{Date: parseDate(d.Date), Dividend: amount})
	}
	sort.SliceStable(history.Dividends, func(i, j int) bool {
		return history.Dividends[i].Date.After(history.Dividends[j].Date)
	})
	return history
}
