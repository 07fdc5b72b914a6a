// Package adjudication implements the deterministic five-step decision
// pipeline: eligibility, document validation, coverage verification, limit
// and amount computation, and manual-review triggers. The engine is pure:
// every fact it consumes arrives in domain.ClaimFacts, and time comes from
// an injected clock, so the same facts always yield the same decision.
package adjudication

import (
	"fmt"
	"strings"
	"time"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
	"github.com/plumclaims/opd-adjudicator/internal/core/policy"
)

type Engine struct {
	policy *policy.Configuration
	now    func() time.Time
}

type Option func(*Engine)

// WithClock overrides the engine clock, used by the fallback policy-start
// assumption. Tests pin it for reproducible decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(cfg *policy.Configuration, opts ...Option) *Engine {
	e := &Engine{policy: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// trace accumulates human-readable notes and reason codes as the pipeline
// runs. It lives on the stack of a single Adjudicate call.
type trace struct {
	reasons []domain.ReasonCode
	notes   []string
}

func (t *trace) add(code domain.ReasonCode, note string) {
	t.reasons = append(t.reasons, code)
	t.notes = append(t.notes, note)
}

func (t *trace) note(note string) {
	t.notes = append(t.notes, note)
}

func (t *trace) joined() string { return strings.Join(t.notes, "; ") }

// Adjudicate runs the full pipeline and returns the decision for one claim.
// It never returns an error: business outcomes are decisions, and the engine
// has no I/O to fail.
func (e *Engine) Adjudicate(facts domain.ClaimFacts) domain.AdjudicationDecision {
	var tr trace
	base := baseConfidence(facts.Extracted)

	if !e.checkEligibility(facts, &tr) {
		return domain.AdjudicationDecision{
			ClaimID:    facts.ClaimID,
			Decision:   domain.StatusRejected,
			Reasons:    tr.reasons,
			Confidence: base,
			Notes:      tr.joined(),
			NextSteps:  "Please review the rejection reasons and submit corrected documentation.",
		}
	}

	if !e.validateDocuments(facts.Extracted, &tr) {
		return domain.AdjudicationDecision{
			ClaimID:    facts.ClaimID,
			Decision:   domain.StatusRejected,
			Reasons:    tr.reasons,
			Confidence: base * 0.8,
			Notes:      tr.joined(),
			NextSteps:  "Please resubmit with complete and legible documents.",
		}
	}

	if covered, nextSteps := e.verifyCoverage(facts, &tr); !covered {
		return domain.AdjudicationDecision{
			ClaimID:    facts.ClaimID,
			Decision:   domain.StatusRejected,
			Reasons:    tr.reasons,
			Confidence: base,
			Notes:      tr.joined(),
			NextSteps:  nextSteps,
		}
	}

	limits := e.computeAmounts(facts, &tr)

	// Manual-review triggers are evaluated even when limits zeroed the
	// amount: a reviewer should see the whole picture, not a rejection.
	if triggers := e.manualReviewTriggers(facts, base, &tr); len(triggers) > 0 {
		return domain.AdjudicationDecision{
			ClaimID:    facts.ClaimID,
			Decision:   domain.StatusManualReview,
			Reasons:    triggers,
			Confidence: base,
			Notes:      tr.joined(),
			NextSteps:  "Your claim has been flagged for manual review. Our team will contact you within 2-3 business days.",
			Breakdown:  limits.breakdown,
		}
	}

	if limits.approved <= 0 {
		return domain.AdjudicationDecision{
			ClaimID:    facts.ClaimID,
			Decision:   domain.StatusRejected,
			Reasons:    tr.reasons,
			Confidence: base,
			Notes:      tr.joined(),
			NextSteps:  "Your claim exceeds the policy limits.",
		}
	}

	decision := domain.StatusApproved
	nextSteps := fmt.Sprintf("Your claim of ₹%.2f has been approved. Amount will be credited within 3-5 business days.", limits.approved)
	if limits.approved < facts.Amount {
		if onlyRateAdjustment(limits.labels) {
			nextSteps = fmt.Sprintf("Your claim of ₹%.2f has been approved after adjustments.", limits.approved)
		} else {
			decision = domain.StatusPartial
			nextSteps = fmt.Sprintf("Partial approval: ₹%.2f of ₹%.2f claimed. Difference due to: %s",
				limits.approved, facts.Amount, strings.Join(limits.labels, ", "))
		}
	}

	return domain.AdjudicationDecision{
		ClaimID:        facts.ClaimID,
		Decision:       decision,
		ApprovedAmount: limits.approved,
		Reasons:        tr.reasons,
		Confidence:     min(base*1.1, 0.95),
		Notes:          tr.joined(),
		NextSteps:      nextSteps,
		Breakdown:      limits.breakdown,
	}
}

// onlyRateAdjustment reports whether the sole adjustment is a co-pay or a
// network discount. Those are contractual deductions, so the claim counts as
// fully approved rather than partially paid.
func onlyRateAdjustment(labels []string) bool {
	if len(labels) != 1 {
		return false
	}
	l := strings.ToLower(labels[0])
	return strings.HasPrefix(l, "co-pay") || strings.HasPrefix(l, "network discount")
}

// baseConfidence starts from the extraction confidence; a claim with no
// processed documents at all scores a neutral 0.5.
func baseConfidence(extracted *domain.ExtractedClaimData) float64 {
	if extracted == nil {
		return 0.5
	}
	return extracted.Confidence
}
