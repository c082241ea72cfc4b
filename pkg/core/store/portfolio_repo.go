package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"intrinsic_valuation/pkg/models"
)

// PortfolioRepo reads portfolios and their positions.
type PortfolioRepo struct {
	db Querier
}

func NewPortfolioRepo(db Querier) *PortfolioRepo {
	return &PortfolioRepo{db: db}
}

const portfolioColumns = `id, user_id, portfolio_name, COALESCE(description, ''), is_active, created_at, updated_at`

func scanPortfolio(row pgx.Row) (models.Portfolio, error) {
	var p models.Portfolio
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetPortfolio loads one portfolio.
func (r *PortfolioRepo) GetPortfolio(ctx context.Context, id int64) (models.Portfolio, error) {
	p, err := scanPortfolio(r.db.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Portfolio{}, fmt.Errorf("portfolio %d: %w", id, ErrNotFound)
		}
		return models.Portfolio{}, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return p, nil
}

// ListActivePortfolios returns every active portfolio, most recently updated first.
func (r *PortfolioRepo) ListActivePortfolios(ctx context.Context) ([]models.Portfolio, error) {
	rows, err := r.db.Query(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE is_active = TRUE ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var out []models.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPositions returns the positions of a portfolio ordered by ticker.
func (r *PortfolioRepo) ListPositions(ctx context.Context, portfolioID int64) ([]models.Position, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, portfolio_id, ticker, shares, avg_price, currency,
		       COALESCE(company_name, ''), COALESCE(sector, ''), updated_at
		FROM positions
		WHERE portfolio_id = $1
		ORDER BY ticker`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.ID, &p.PortfolioID, &p.Ticker, &p.Shares, &p.AvgPrice, &p.Currency,
			&p.CompanyName, &p.Sector, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// foreignKeyViolation is the SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

// AddPosition inserts a position or merges it into the existing one with a
// share-weighted average price. An unknown portfolio yields ErrNotFound.
func (r *PortfolioRepo) AddPosition(ctx context.Context, p models.Position) error {
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	switch {
	case p.Ticker == "":
		return fmt.Errorf("%w: ticker is required", ErrInvalidPosition)
	case !(p.Shares > 0) || math.IsInf(p.Shares, 0):
		return fmt.Errorf("%w: shares must be positive", ErrInvalidPosition)
	case !(p.AvgPrice >= 0) || math.IsInf(p.AvgPrice, 0):
		return fmt.Errorf("%w: avg_price must be non-negative", ErrInvalidPosition)
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO positions (portfolio_id, ticker, shares, avg_price, currency, company_name, sector)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (portfolio_id, ticker) DO UPDATE SET
			avg_price  = (positions.shares * positions.avg_price + EXCLUDED.shares * EXCLUDED.avg_price)
			             / (positions.shares + EXCLUDED.shares),
			shares     = positions.shares + EXCLUDED.shares,
			updated_at = NOW()`,
		p.PortfolioID, p.Ticker, p.Shares, p.AvgPrice, p.Currency, p.CompanyName, p.Sector)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("portfolio %d: %w", p.PortfolioID, ErrNotFound)
		}
		return fmt.Errorf("failed to add position: %w", err)
	}
	if _, err := r.db.Exec(ctx, `UPDATE portfolios SET updated_at = NOW() WHERE id = $1`, p.PortfolioID); err != nil {
		return fmt.Errorf("failed to touch portfolio: %w", err)
	}
	return nil
}
