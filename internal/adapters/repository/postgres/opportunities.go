package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/port"

	"github.com/jmoiron/sqlx"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

const schema = `CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id           UUID PRIMARY KEY,
	symbol       TEXT NOT NULL,
	max_price    DOUBLE PRECISION NOT NULL,
	min_price    DOUBLE PRECISION NOT NULL,
	difference   DOUBLE PRECISION NOT NULL,
	higher_venue TEXT NOT NULL,
	lower_venue  TEXT NOT NULL,
	threshold    DOUBLE PRECISION NOT NULL,
	prices       JSONB NOT NULL DEFAULT '{}',
	detected_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_arbitrage_opportunities_detected_at
	ON arbitrage_opportunities (detected_at DESC);
CREATE INDEX IF NOT EXISTS idx_arbitrage_opportunities_symbol
	ON arbitrage_opportunities (symbol, detected_at DESC)`

const insertOpportunity = `INSERT INTO arbitrage_opportunities
	(id, symbol, max_price, min_price, difference, higher_venue, lower_venue, threshold, prices, detected_at)
	VALUES (:id, :symbol, :max_price, :min_price, :difference, :higher_venue, :lower_venue, :threshold, :prices, :detected_at)`

const selectColumns = `SELECT id, symbol, max_price, min_price, difference, higher_venue, lower_venue, threshold, prices, detected_at
	FROM arbitrage_opportunities`

// opportunityRow carries the prices map as raw JSONB.
type opportunityRow struct {
	ID          string    `db:"id"`
	Symbol      string    `db:"symbol"`
	MaxPrice    float64   `db:"max_price"`
	MinPrice    float64   `db:"min_price"`
	Difference  float64   `db:"difference"`
	HigherVenue string    `db:"higher_venue"`
	LowerVenue  string    `db:"lower_venue"`
	Threshold   float64   `db:"threshold"`
	Prices      []byte    `db:"prices"`
	DetectedAt  time.Time `db:"detected_at"`
}

type OpportunityRepository struct {
	db *sqlx.DB
}

func NewOpportunityRepository(db *sqlx.DB) port.OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// EnsureSchema creates the opportunities table and its indexes if missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (r *OpportunityRepository) Save(ctx context.Context, opp *domain.ArbitrageOpportunity) error {
	if opp == nil {
		return fmt.Errorf("nil opportunity")
	}

	prices, err := json.Marshal(opp.Prices)
	if err != nil {
		return fmt.Errorf("failed to marshal prices: %w", err)
	}
	if opp.Prices == nil {
		prices = []byte("{}")
	}

	row := opportunityRow{
		ID:          opp.ID,
		Symbol:      opp.Symbol,
		MaxPrice:    opp.MaxPrice,
		MinPrice:    opp.MinPrice,
		Difference:  opp.Difference,
		HigherVenue: opp.HigherVenue,
		LowerVenue:  opp.LowerVenue,
		Threshold:   opp.Threshold,
		Prices:      prices,
		DetectedAt:  opp.DetectedAt,
	}

	if _, err := r.db.NamedExecContext(ctx, insertOpportunity, row); err != nil {
		return fmt.Errorf("failed to save opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ListRecent returns opportunities newest first, optionally for one symbol.
func (r *OpportunityRepository) ListRecent(ctx context.Context, limit int, symbol string) ([]domain.ArbitrageOpportunity, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		return nil, fmt.Errorf("%w: limit must be at most %d", domain.ErrInvalidLimit, MaxListLimit)
	}

	var rows []opportunityRow
	var err error
	if symbol == "" {
		err = r.db.SelectContext(ctx, &rows, selectColumns+` ORDER BY detected_at DESC LIMIT $1`, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows, selectColumns+` WHERE symbol = $1 ORDER BY detected_at DESC LIMIT $2`, symbol, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}

	result := make([]domain.ArbitrageOpportunity, 0, len(rows))
	for _, row := range rows {
		opp := domain.ArbitrageOpportunity{
			ID:          row.ID,
			Symbol:      row.Symbol,
			MaxPrice:    row.MaxPrice,
			MinPrice:    row.MinPrice,
			Difference:  row.Difference,
			HigherVenue: row.HigherVenue,
			LowerVenue:  row.LowerVenue,
			Threshold:   row.Threshold,
			DetectedAt:  row.DetectedAt.UTC(),
		}
		if len(row.Prices) > 0 {
			if err := json.Unmarshal(row.Prices, &opp.Prices); err != nil {
				return nil, fmt.Errorf("failed to decode prices for %s: %w", row.ID, err)
			}
		}
		result = append(result, opp)
	}
	return result, nil
}

func (r *OpportunityRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
