package usecase

import (
	"context"
	"fmt"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
	"github.com/plumclaims/opd-adjudicator/internal/core/ports"
)

// ReadClaimsUseCase serves claim lookups, listings and aggregates.
type ReadClaimsUseCase struct {
	repo ports.ClaimRepository
}

func NewReadClaimsUseCase(repo ports.ClaimRepository) *ReadClaimsUseCase {
	return &ReadClaimsUseCase{repo: repo}
}

func (uc *ReadClaimsUseCase) GetByClaimID(ctx context.Context, claimID string) (*domain.Claim, error) {
	claim, err := uc.repo.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("fetch claim by id: %w", err)
	}
	return claim, nil
}

func (uc *ReadClaimsUseCase) List(ctx context.Context, filter domain.ClaimFilter) ([]domain.Claim, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	claims, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

func (uc *ReadClaimsUseCase) Stats(ctx context.Context) (domain.ClaimStats, error) {
	stats, err := uc.repo.Stats(ctx)
	if err != nil {
		return domain.ClaimStats{}, fmt.Errorf("aggregate claim stats: %w", err)
	}
	return stats, nil
}
