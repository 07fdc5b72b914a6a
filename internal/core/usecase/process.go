package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
	"github.com/plumclaims/opd-adjudicator/internal/core/policy"
	"github.com/plumclaims/opd-adjudicator/internal/core/ports"
)

type ProcessClaimUseCase struct {
	repo   ports.ClaimRepository
	texts  ports.TextExtractor
	fields ports.FieldExtractor
	engine ports.Adjudicator
	policy *policy.Configuration
	now    func() time.Time
}

func NewProcessClaimUseCase(
	repo ports.ClaimRepository,
	texts ports.TextExtractor,
	fields ports.FieldExtractor,
	engine ports.Adjudicator,
	cfg *policy.Configuration,
) *ProcessClaimUseCase {
	return &ProcessClaimUseCase{
		repo:   repo,
		texts:  texts,
		fields: fields,
		engine: engine,
		policy: cfg,
		now:    time.Now,
	}
}

// ProcessByID runs the full processing pipeline for a submitted claim:
// document text extraction, structured field extraction, fact assembly and
// adjudication. Pipeline faults never reject a claim; they route it to
// manual review with a PROCESSING_ERROR marker.
func (uc *ProcessClaimUseCase) ProcessByID(ctx context.Context, claimID string) error {
	if err := uc.repo.UpdateStatus(ctx, claimID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.runPipeline(ctx, claimID); err != nil {
		if reviewErr := uc.routeToReview(ctx, claimID, err); reviewErr != nil {
			return fmt.Errorf("%w; route to manual review: %v", err, reviewErr)
		}
		return err
	}

	return nil
}

func (uc *ProcessClaimUseCase) runPipeline(ctx context.Context, claimID string) error {
	claim, err := uc.repo.GetByClaimID(ctx, claimID)
	if err != nil {
		return fmt.Errorf("fetch claim by id: %w", err)
	}

	text, textConfidence, err := uc.extractDocumentText(ctx, claim)
	if err != nil {
		return err
	}
	claim.ExtractedText = text

	extracted, err := uc.extractFields(ctx, text, textConfidence)
	if err != nil {
		return err
	}
	claim.Extracted = extracted
	mergeExtracted(claim, extracted)

	facts, err := uc.assembleFacts(ctx, claim)
	if err != nil {
		return err
	}

	decision := uc.engine.Adjudicate(facts)
	claim.ApplyDecision(decision, uc.now())
	claim.YTDClaimed = facts.YTDApproved + decision.ApprovedAmount

	if err := uc.repo.SaveDecision(ctx, claim); err != nil {
		return fmt.Errorf("save decision: %w", err)
	}

	return nil
}

// extractDocumentText pulls text out of every stored document and combines
// them under per-document headers. The returned confidence is the average
// across documents that yielded text.
func (uc *ProcessClaimUseCase) extractDocumentText(ctx context.Context, claim *domain.Claim) (string, float64, error) {
	var (
		parts     []string
		total     float64
		extracted int
	)
	for _, key := range claim.Documents {
		text, confidence, err := uc.texts.Extract(ctx, key, filepath.Base(key))
		if err != nil {
			return "", 0, fmt.Errorf("extract text from %s: %w", key, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("=== Document: %s ===\n%s", filepath.Base(key), text))
		total += confidence
		extracted++
	}
	if extracted == 0 {
		return "", 0, nil
	}
	return strings.Join(parts, "\n\n"), total / float64(extracted), nil
}

// extractFields turns combined document text into structured claim data.
// No usable text means no extracted data at all, which the engine treats as
// missing documents.
func (uc *ProcessClaimUseCase) extractFields(ctx context.Context, text string, textConfidence float64) (*domain.ExtractedClaimData, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	extracted, err := uc.fields.ExtractFields(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract claim fields: %w", err)
	}
	if extracted != nil && textConfidence > 0 && textConfidence < extracted.Confidence {
		// Field extraction cannot be more trustworthy than the text it read.
		extracted.Confidence = textConfidence
	}
	return extracted, nil
}

// mergeExtracted backfills claim fields from the documents. Declared values
// win only when the documents are silent.
func mergeExtracted(claim *domain.Claim, extracted *domain.ExtractedClaimData) {
	if extracted == nil {
		return
	}
	if claim.PatientName == "" && extracted.PatientName != "" {
		claim.PatientName = extracted.PatientName
	}
	if extracted.DoctorName != "" {
		claim.DoctorName = extracted.DoctorName
	}
	if extracted.DoctorRegCode != "" {
		claim.DoctorRegCode = extracted.DoctorRegCode
	}
	if extracted.Diagnosis != "" {
		claim.Diagnosis = extracted.Diagnosis
	}
	if extracted.HospitalName != "" {
		claim.HospitalName = extracted.HospitalName
	}
	if claim.TreatmentDate.IsZero() && extracted.TreatmentDate != "" {
		if parsed, ok := parseTreatmentDate(extracted.TreatmentDate); ok {
			claim.TreatmentDate = parsed
		}
	}
}

func parseTreatmentDate(raw string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02-01-2006"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func (uc *ProcessClaimUseCase) assembleFacts(ctx context.Context, claim *domain.Claim) (domain.ClaimFacts, error) {
	ytd, err := uc.repo.YTDApproved(ctx, claim.EmployeeID, claim.ClaimID, claim.SubmittedAt)
	if err != nil {
		return domain.ClaimFacts{}, fmt.Errorf("compute ytd approved: %w", err)
	}

	priorToday, err := uc.repo.CountOtherClaimsOnDay(ctx, claim.EmployeeID, claim.ClaimID, claim.SubmittedAt)
	if err != nil {
		return domain.ClaimFacts{}, fmt.Errorf("count same-day claims: %w", err)
	}

	return domain.ClaimFacts{
		ClaimID:          claim.ClaimID,
		Amount:           claim.ClaimAmount,
		Category:         claim.Category,
		TreatmentDate:    claim.TreatmentDate,
		Extracted:        claim.Extracted,
		YTDApproved:      ytd,
		NetworkHospital:  uc.policy.IsNetworkHospital(claim.HospitalName),
		PreAuthObtained:  claim.PreAuthObtained,
		PriorClaimsToday: priorToday,
	}, nil
}

// routeToReview parks a claim that hit a system fault where a human will
// see it, preserving the fault text in the notes.
func (uc *ProcessClaimUseCase) routeToReview(ctx context.Context, claimID string, procErr error) error {
	claim, err := uc.repo.GetByClaimID(ctx, claimID)
	if err != nil {
		return uc.repo.UpdateStatus(ctx, claimID, domain.StatusManualReview, procErr.Error())
	}
	claim.ApplyDecision(domain.AdjudicationDecision{
		ClaimID:   claimID,
		Decision:  domain.StatusManualReview,
		Reasons:   []domain.ReasonCode{domain.ReasonProcessingError},
		Notes:     procErr.Error(),
		NextSteps: "Your claim could not be processed automatically and has been sent for manual review.",
	}, uc.now())
	return uc.repo.SaveDecision(ctx, claim)
}
