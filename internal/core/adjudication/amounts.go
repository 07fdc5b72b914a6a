package adjudication

import (
	"fmt"
	"math"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
)

// limitOutcome carries the computed payable amount plus the member-facing
// adjustment labels and the itemized breakdown.
type limitOutcome struct {
	approved  float64
	labels    []string
	breakdown *domain.Breakdown
}

// computeAmounts is step 4: minimum amount gate, then deductions in fixed
// order (network discount, co-pay, per-claim limit, category sub-limit,
// annual limit). Order matters: percentage deductions come off the claimed
// amount before any limit clipping.
func (e *Engine) computeAmounts(facts domain.ClaimFacts, tr *trace) limitOutcome {
	breakdown := &domain.Breakdown{OriginalAmount: facts.Amount, Adjustments: []domain.Adjustment{}}
	approved := facts.Amount
	var labels []string

	if facts.Amount < e.policy.MinimumClaimAmount() {
		tr.add(domain.ReasonBelowMinAmount, fmt.Sprintf("Claim amount ₹%.2f is below minimum ₹%.2f",
			facts.Amount, e.policy.MinimumClaimAmount()))
		return limitOutcome{labels: []string{"Below minimum claim amount"}}
	}

	if facts.NetworkHospital {
		if discount := e.policy.NetworkDiscount(facts.Category); discount > 0 {
			amount := approved * discount
			approved -= amount
			labels = append(labels, fmt.Sprintf("Network discount: %.0f%%", discount*100))
			breakdown.Adjustments = append(breakdown.Adjustments, domain.Adjustment{
				Type:       domain.AdjustmentNetworkDiscount,
				Percentage: discount * 100,
				Amount:     -amount,
			})
		}
	}

	// In-network treatment is cashless: no co-pay is collected.
	if copay := e.policy.Copay(facts.Category, false); copay > 0 && !facts.NetworkHospital {
		amount := approved * copay
		approved -= amount
		labels = append(labels, fmt.Sprintf("Co-pay: %.0f%%", copay*100))
		breakdown.Adjustments = append(breakdown.Adjustments, domain.Adjustment{
			Type:       domain.AdjustmentCopay,
			Percentage: copay * 100,
			Amount:     -amount,
		})
	}

	perClaimLimit := e.policy.PerClaimLimit()
	subLimit := e.policy.SubLimit(facts.Category)

	// Categories whose sub-limit stays within the global per-claim limit get
	// the strict treatment: a claim over the global limit is rejected
	// outright. Categories with a higher sub-limit (dental, pharmacy,
	// diagnostics) are clipped to that sub-limit instead.
	if subLimit <= perClaimLimit {
		if facts.Amount > perClaimLimit {
			tr.add(domain.ReasonPerClaimExceeded, fmt.Sprintf("Amount exceeds per-claim limit of ₹%.2f", perClaimLimit))
			return limitOutcome{labels: []string{"Per-claim limit exceeded"}}
		}
		if approved > perClaimLimit {
			excess := approved - perClaimLimit
			approved = perClaimLimit
			labels = append(labels, fmt.Sprintf("Per-claim limit: ₹%.2f", perClaimLimit))
			tr.add(domain.ReasonPerClaimExceeded, fmt.Sprintf("Amount exceeds per-claim limit of ₹%.2f", perClaimLimit))
			breakdown.Adjustments = append(breakdown.Adjustments, domain.Adjustment{
				Type:   domain.AdjustmentPerClaimLimit,
				Limit:  perClaimLimit,
				Amount: -excess,
			})
		}
	}

	// In-network consultations skip sub-limit enforcement (cashless rate is
	// settled directly with the hospital).
	if !(facts.NetworkHospital && facts.Category == domain.CategoryConsultation) {
		if approved > subLimit {
			excess := approved - subLimit
			approved = subLimit
			labels = append(labels, fmt.Sprintf("Sub-limit (%s): ₹%.2f", facts.Category, subLimit))
			tr.reasons = append(tr.reasons, domain.ReasonSubLimitExceeded)
			breakdown.Adjustments = append(breakdown.Adjustments, domain.Adjustment{
				Type:     domain.AdjustmentSubLimit,
				Category: facts.Category,
				Limit:    subLimit,
				Amount:   -excess,
			})
		}
	}

	remainingAnnual := e.policy.AnnualLimit() - facts.YTDApproved
	if approved > remainingAnnual {
		if remainingAnnual <= 0 {
			tr.add(domain.ReasonAnnualLimitExceeded, "Annual limit already exhausted")
			return limitOutcome{labels: []string{"Annual limit exhausted"}, breakdown: breakdown}
		}
		excess := approved - remainingAnnual
		approved = remainingAnnual
		labels = append(labels, fmt.Sprintf("Annual limit remaining: ₹%.2f", remainingAnnual))
		tr.reasons = append(tr.reasons, domain.ReasonAnnualLimitExceeded)
		breakdown.Adjustments = append(breakdown.Adjustments, domain.Adjustment{
			Type:      domain.AdjustmentAnnualLimit,
			Remaining: remainingAnnual,
			Amount:    -excess,
		})
	}

	approved = round2(approved)
	breakdown.FinalAmount = approved

	return limitOutcome{approved: approved, labels: labels, breakdown: breakdown}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
