package usecase

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
	"github.com/plumclaims/opd-adjudicator/internal/core/ports"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

type SubmitClaimUseCase struct {
	repo    ports.ClaimRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	now     func() time.Time
}

func NewSubmitClaimUseCase(
	repo ports.ClaimRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitClaimUseCase {
	return &SubmitClaimUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		now:     time.Now,
	}
}

func (uc *SubmitClaimUseCase) Submit(
	ctx context.Context,
	sub ports.ClaimSubmission,
	uploads []ports.ClaimUpload,
) (*domain.Claim, error) {
	category, treatmentDate, err := validateSubmission(sub, uploads)
	if err != nil {
		return nil, err
	}

	claimID := newClaimID()
	now := uc.now().UTC()

	keys := make([]string, 0, len(uploads))
	for _, up := range uploads {
		key := fmt.Sprintf("%s/%s", claimID, sanitizeFilename(up.Filename))
		if err := uc.storage.Save(ctx, key, up.Body); err != nil {
			return nil, fmt.Errorf("save claim document: %w", err)
		}
		keys = append(keys, key)
	}

	claim := &domain.Claim{
		ClaimID:         claimID,
		PolicyID:        sub.PolicyID,
		EmployeeID:      sub.EmployeeID,
		Category:        category,
		PatientName:     sub.PatientName,
		ClaimAmount:     sub.ClaimAmount,
		TreatmentDate:   treatmentDate,
		HospitalName:    sub.HospitalName,
		PreAuthObtained: sub.PreAuthObtained,
		Documents:       keys,
		Status:          domain.StatusPending,
		SubmittedAt:     now,
	}

	if err := uc.repo.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim record: %w", err)
	}

	if err := uc.queue.PublishClaimSubmitted(ctx, claim.ClaimID); err != nil {
		return nil, fmt.Errorf("publish claim submitted event: %w", err)
	}

	return claim, nil
}

func validateSubmission(sub ports.ClaimSubmission, uploads []ports.ClaimUpload) (domain.Category, time.Time, error) {
	if strings.TrimSpace(sub.EmployeeID) == "" {
		return "", time.Time{}, domain.WrapError(domain.ErrInvalidInput, "validate submission", errors.New("employee_id is required"))
	}
	if sub.ClaimAmount <= 0 {
		return "", time.Time{}, domain.WrapError(domain.ErrInvalidInput, "validate submission", errors.New("claim_amount must be positive"))
	}

	category, err := domain.ParseCategory(sub.Category)
	if err != nil {
		return "", time.Time{}, err
	}

	treatmentDate, err := time.Parse("2006-01-02", sub.TreatmentDate)
	if err != nil {
		return "", time.Time{}, domain.WrapError(domain.ErrInvalidInput, "validate submission",
			fmt.Errorf("treatment_date must be YYYY-MM-DD: %q", sub.TreatmentDate))
	}

	for _, up := range uploads {
		ext := strings.ToLower(filepath.Ext(up.Filename))
		if !allowedExtensions[ext] {
			return "", time.Time{}, domain.WrapError(domain.ErrInvalidInput, "validate submission",
				fmt.Errorf("unsupported document type: %q", up.Filename))
		}
	}

	return category, treatmentDate, nil
}

// newClaimID produces member-facing identifiers like CLM_9F2C41AB.
func newClaimID() string {
	id := uuid.New()
	return "CLM_" + strings.ToUpper(hex.EncodeToString(id[:4]))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
