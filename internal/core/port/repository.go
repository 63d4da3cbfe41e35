package port

import (
	"context"

	"cryptoarb/internal/core/domain"
)

type OpportunityRepository interface {
	Save(ctx context.Context, opp *domain.ArbitrageOpportunity) error
	ListRecent(ctx context.Context, limit int, symbol string) ([]domain.ArbitrageOpportunity, error)
	Ping(ctx context.Context) error
}

// OpportunityPublisher pushes opportunities to live subscribers
type OpportunityPublisher interface {
	Publish(opp *domain.ArbitrageOpportunity)
	ClientCount() int
}
