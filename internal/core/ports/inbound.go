package ports

import (
	"context"
	"io"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
)

// ClaimUpload is one document received with a submission.
type ClaimUpload struct {
	Filename string
	MimeType string
	Body     io.Reader
}

// ClaimSubmission carries the declared claim fields from the intake form.
type ClaimSubmission struct {
	EmployeeID      string
	PolicyID        string
	Category        string
	PatientName     string
	ClaimAmount     float64
	TreatmentDate   string
	HospitalName    string
	PreAuthObtained bool
}

// ClaimSubmitter is the inbound contract for claim intake.
type ClaimSubmitter interface {
	Submit(ctx context.Context, sub ClaimSubmission, uploads []ClaimUpload) (*domain.Claim, error)
}

// ClaimProcessor is the inbound contract for asynchronous adjudication.
type ClaimProcessor interface {
	ProcessByID(ctx context.Context, claimID string) error
}

// ClaimReader is the inbound read model for claim state and aggregates.
type ClaimReader interface {
	GetByClaimID(ctx context.Context, claimID string) (*domain.Claim, error)
	List(ctx context.Context, filter domain.ClaimFilter) ([]domain.Claim, error)
	Stats(ctx context.Context) (domain.ClaimStats, error)
}
