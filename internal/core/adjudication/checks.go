package adjudication

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
)

// doctorRegPattern accepts multi-segment council prefixes such as
// MCI/12345/2020 or AYUR/KL/4567/2019.
var doctorRegPattern = regexp.MustCompile(`^[A-Z]+(?:/[A-Z]+)*/\d{4,6}/\d{4}$`)

// checkEligibility is step 1: the policy must have been active on the
// treatment date, and all applicable waiting periods must be over.
func (e *Engine) checkEligibility(facts domain.ClaimFacts, tr *trace) bool {
	policyStart := facts.PolicyStart
	if policyStart.IsZero() {
		policyStart = e.now().AddDate(0, 0, -365)
	}

	if facts.TreatmentDate.Before(policyStart) {
		tr.add(domain.ReasonPolicyInactive, "Treatment date is before policy start date")
		return false
	}

	daysSinceStart := int(facts.TreatmentDate.Sub(policyStart).Hours() / 24)

	if facts.Extracted != nil && facts.Extracted.Diagnosis != "" {
		for _, match := range e.policy.MatchingAilments(facts.Extracted.Diagnosis) {
			if daysSinceStart < match.Days {
				tr.add(domain.ReasonWaitingPeriod, fmt.Sprintf(
					"%s has a %d-day waiting period. Only %d days since policy start.",
					titleCase(match.Ailment), match.Days, daysSinceStart))
				return false
			}
		}
	}

	if initial := e.policy.InitialWaitingDays(); daysSinceStart < initial {
		tr.add(domain.ReasonWaitingPeriod, fmt.Sprintf("Initial waiting period of %d days not completed", initial))
		return false
	}

	return true
}

// validateDocuments is step 2: extraction must have produced usable data and
// a plausible prescription trail.
func (e *Engine) validateDocuments(extracted *domain.ExtractedClaimData, tr *trace) bool {
	if extracted == nil {
		tr.add(domain.ReasonMissingDocuments, "No documents provided for processing")
		return false
	}

	if extracted.Confidence < 0.3 {
		tr.add(domain.ReasonIllegibleDocuments, "Documents are too unclear to process")
		return false
	}

	if extracted.DoctorRegCode != "" && !doctorRegPattern.MatchString(extracted.DoctorRegCode) {
		tr.add(domain.ReasonDoctorRegInvalid, fmt.Sprintf("Invalid doctor registration format: %s", extracted.DoctorRegCode))
		return false
	}

	if len(extracted.Medicines) == 0 && len(extracted.Tests) == 0 &&
		extracted.DoctorName == "" && extracted.DoctorRegCode == "" {
		tr.add(domain.ReasonMissingDocuments, "Prescription from registered doctor is required")
		return false
	}

	return true
}

// verifyCoverage is step 3: category coverage, exclusions across diagnosis
// and itemized medicines/tests, and pre-authorization. The returned string
// is the member-facing next step for the rejection, when one applies.
func (e *Engine) verifyCoverage(facts domain.ClaimFacts, tr *trace) (bool, string) {
	const defaultNextSteps = "This treatment is not covered under your policy."

	if !e.policy.Covered(facts.Category) {
		tr.add(domain.ReasonServiceNotCovered, fmt.Sprintf("%s is not covered under this policy", facts.Category))
		return false, defaultNextSteps
	}

	extracted := facts.Extracted

	if extracted != nil && extracted.Diagnosis != "" && e.policy.IsExcluded(extracted.Diagnosis) {
		tr.add(domain.ReasonExcludedCondition, fmt.Sprintf("Treatment for '%s' is excluded", extracted.Diagnosis))
		return false, "This condition is in the policy exclusions list."
	}

	if extracted != nil {
		deficiency := extracted.Diagnosis != "" &&
			strings.Contains(strings.ToLower(extracted.Diagnosis), "deficiency")

		items := make([]string, 0, len(extracted.Medicines)+len(extracted.Tests))
		items = append(items, extracted.Medicines...)
		items = append(items, extracted.Tests...)
		for _, item := range items {
			// Vitamins and supplements stay payable unless the diagnosis
			// states a deficiency; a diagnosed deficiency re-enters the
			// normal exclusion check.
			lower := strings.ToLower(item)
			if (strings.Contains(lower, "vitamin") || strings.Contains(lower, "supplement")) && !deficiency {
				continue
			}
			if e.policy.IsExcluded(item) {
				tr.add(domain.ReasonExcludedCondition, fmt.Sprintf("'%s' is excluded from coverage", item))
				return false, defaultNextSteps
			}
		}

		for _, test := range extracted.Tests {
			if e.policy.RequiresPreAuth(test) && !facts.PreAuthObtained {
				tr.add(domain.ReasonPreAuthMissing, fmt.Sprintf("Pre-authorization required for '%s'", test))
				return false, fmt.Sprintf("Please obtain pre-authorization for %s and resubmit.", test)
			}
		}
	}

	if facts.Category == domain.CategoryDental && extracted != nil && extracted.Diagnosis != "" {
		diagnosis := strings.ToLower(extracted.Diagnosis)
		for _, cosmetic := range []string{"whitening", "bleaching", "cosmetic", "veneer"} {
			if strings.Contains(diagnosis, cosmetic) {
				tr.add(domain.ReasonExcludedCondition, "Cosmetic dental procedures are not covered")
				return false, defaultNextSteps
			}
		}
	}

	return true, ""
}

// manualReviewTriggers is step 5. Triggers route the claim to a human; they
// are returned as the decision's reason codes.
func (e *Engine) manualReviewTriggers(facts domain.ClaimFacts, confidence float64, tr *trace) []domain.ReasonCode {
	var triggers []domain.ReasonCode

	if facts.Amount > 25000 {
		triggers = append(triggers, domain.ReasonHighValueClaim)
		tr.note(fmt.Sprintf("High value claim: ₹%.2f", facts.Amount))
	}

	if confidence < 0.5 {
		triggers = append(triggers, domain.ReasonLowConfidence)
		tr.note(fmt.Sprintf("Low extraction confidence: %.0f%%", confidence*100))
	}

	if facts.PriorClaimsToday >= 2 {
		triggers = append(triggers, domain.ReasonFraudIndicator)
		tr.note("Multiple claims submitted on same day")
	}

	if facts.Extracted != nil && facts.Extracted.DoctorRegCode == "" {
		triggers = append(triggers, domain.ReasonMissingDoctorReg)
		tr.note("Doctor registration number not found")
	}

	return triggers
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
