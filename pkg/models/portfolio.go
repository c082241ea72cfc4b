package models

import (
	"time"
)

type Portfolio struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"portfolio_name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Position struct {
	ID          int64     `json:"id"`
	PortfolioID int64     `json:"portfolio_id"`
	Ticker      string    `json:"ticker"`
	Shares      float64   `json:"shares"`
	AvgPrice    float64   `json:"avg_price"`
	Currency    string    `json:"currency"`
	CompanyName string    `json:"company_name,omitempty"`
	Sector      string    `json:"sector,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CostBasis is shares x average purchase price.
func (p Position) CostBasis() float64 {
	return p.Shares * p.AvgPrice
}
