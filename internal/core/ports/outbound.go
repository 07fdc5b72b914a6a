package ports

import (
	"context"
	"io"
	"time"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
)

// ClaimRepository persists and reads claim state.
type ClaimRepository interface {
	Create(ctx context.Context, claim *domain.Claim) error
	GetByClaimID(ctx context.Context, claimID string) (*domain.Claim, error)
	UpdateStatus(ctx context.Context, claimID string, status domain.ClaimStatus, note string) error
	SaveDecision(ctx context.Context, claim *domain.Claim) error
	List(ctx context.Context, filter domain.ClaimFilter) ([]domain.Claim, error)

	// YTDApproved sums approved amounts of APPROVED and PARTIAL claims for
	// the employee in the calendar year of ref, excluding claimID itself.
	YTDApproved(ctx context.Context, employeeID, claimID string, ref time.Time) (float64, error)

	// CountOtherClaimsOnDay counts the employee's other claims submitted on
	// the same calendar day as ref.
	CountOtherClaimsOnDay(ctx context.Context, employeeID, claimID string, ref time.Time) (int, error)

	Stats(ctx context.Context) (domain.ClaimStats, error)
}

// ObjectStorage stores submitted claim documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes claim-submitted events.
type MessageQueue interface {
	PublishClaimSubmitted(ctx context.Context, claimID string) error
	SubscribeClaimSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor pulls plain text out of stored documents. Confidence is the
// extractor's own estimate in [0,1] of how faithful the text is.
type TextExtractor interface {
	Extract(ctx context.Context, key, filename string) (text string, confidence float64, err error)
}

// FieldExtractor turns raw document text into structured claim fields.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (*domain.ExtractedClaimData, error)
}

// Adjudicator decides a claim from assembled facts.
type Adjudicator interface {
	Adjudicate(facts domain.ClaimFacts) domain.AdjudicationDecision
}
