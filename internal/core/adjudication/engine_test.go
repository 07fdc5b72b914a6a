package adjudication

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
	"github.com/plumclaims/opd-adjudicator/internal/core/policy"
)

func testEngine() *Engine {
	clock := func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	return New(policy.Default(), WithClock(clock))
}

func baseFacts() domain.ClaimFacts {
	return domain.ClaimFacts{
		ClaimID:       "CLM_TEST0001",
		Amount:        1500,
		Category:      domain.CategoryConsultation,
		TreatmentDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		PolicyStart:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Extracted: &domain.ExtractedClaimData{
			PatientName:   "Rahul Sharma",
			DoctorName:    "Dr. Anita Mehta",
			DoctorRegCode: "MH/12345/2020",
			Diagnosis:     "Viral fever",
			Medicines:     []string{"Paracetamol 650mg"},
			Confidence:    0.85,
		},
	}
}

func hasReason(d domain.AdjudicationDecision, code domain.ReasonCode) bool {
	for _, r := range d.Reasons {
		if r == code {
			return true
		}
	}
	return false
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAdjudicateConsultationCopay(t *testing.T) {
	d := testEngine().Adjudicate(baseFacts())

	if d.Decision != domain.StatusApproved {
		t.Fatalf("decision = %s, want APPROVED (%s)", d.Decision, d.Notes)
	}
	if !almostEqual(d.ApprovedAmount, 1350) {
		t.Fatalf("approved = %v, want 1350", d.ApprovedAmount)
	}
	if len(d.Reasons) != 0 {
		t.Fatalf("unexpected reasons: %v", d.Reasons)
	}
	if !almostEqual(d.Confidence, 0.85*1.1) {
		t.Fatalf("confidence = %v", d.Confidence)
	}
	if d.Breakdown == nil || len(d.Breakdown.Adjustments) != 1 {
		t.Fatalf("unexpected breakdown: %+v", d.Breakdown)
	}
	adj := d.Breakdown.Adjustments[0]
	if adj.Type != domain.AdjustmentCopay || !almostEqual(adj.Amount, -150) {
		t.Fatalf("unexpected adjustment: %+v", adj)
	}
	if !strings.Contains(d.NextSteps, "approved after adjustments") {
		t.Fatalf("unexpected next steps: %s", d.NextSteps)
	}
}

func TestAdjudicateNetworkConsultationSkipsCopayAndSubLimit(t *testing.T) {
	facts := baseFacts()
	facts.Amount = 2500
	facts.NetworkHospital = true

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusApproved {
		t.Fatalf("decision = %s (%s)", d.Decision, d.Notes)
	}
	// 15% network discount only: no co-pay, and the consultation sub-limit
	// of 2000 is not enforced for cashless claims.
	if !almostEqual(d.ApprovedAmount, 2125) {
		t.Fatalf("approved = %v, want 2125", d.ApprovedAmount)
	}
	if d.Breakdown == nil || len(d.Breakdown.Adjustments) != 1 ||
		d.Breakdown.Adjustments[0].Type != domain.AdjustmentNetworkDiscount {
		t.Fatalf("unexpected breakdown: %+v", d.Breakdown)
	}
}

func TestAdjudicatePharmacyClippedToSubLimit(t *testing.T) {
	facts := baseFacts()
	facts.Category = domain.CategoryPharmacy
	facts.Amount = 20000

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusPartial {
		t.Fatalf("decision = %s (%s)", d.Decision, d.Notes)
	}
	if !almostEqual(d.ApprovedAmount, 15000) {
		t.Fatalf("approved = %v, want 15000", d.ApprovedAmount)
	}
	if !hasReason(d, domain.ReasonSubLimitExceeded) {
		t.Fatalf("reasons = %v, want SUB_LIMIT_EXCEEDED", d.Reasons)
	}
	if !strings.Contains(d.NextSteps, "Partial approval") {
		t.Fatalf("unexpected next steps: %s", d.NextSteps)
	}
}

func TestAdjudicateDentalAboveGlobalLimitUsesSubLimit(t *testing.T) {
	facts := baseFacts()
	facts.Category = domain.CategoryDental
	facts.Amount = 8000
	facts.Extracted.Diagnosis = "Root canal treatment"

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusApproved {
		t.Fatalf("decision = %s (%s)", d.Decision, d.Notes)
	}
	if !almostEqual(d.ApprovedAmount, 8000) {
		t.Fatalf("approved = %v, want 8000", d.ApprovedAmount)
	}
}

func TestAdjudicateConsultationOverGlobalLimitRejected(t *testing.T) {
	facts := baseFacts()
	facts.Amount = 6000

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected {
		t.Fatalf("decision = %s (%s)", d.Decision, d.Notes)
	}
	if !hasReason(d, domain.ReasonPerClaimExceeded) {
		t.Fatalf("reasons = %v", d.Reasons)
	}
	if d.ApprovedAmount != 0 {
		t.Fatalf("approved = %v", d.ApprovedAmount)
	}
}

func TestAdjudicateBelowMinimumAmount(t *testing.T) {
	facts := baseFacts()
	facts.Amount = 300

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonBelowMinAmount) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateMinimumAmountBoundary(t *testing.T) {
	facts := baseFacts()
	facts.Amount = 500

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusApproved {
		t.Fatalf("amount at minimum: decision = %s, want APPROVED (%s)", d.Decision, d.Notes)
	}
	if !almostEqual(d.ApprovedAmount, 450) {
		t.Fatalf("amount at minimum: approved = %v, want 450", d.ApprovedAmount)
	}

	facts.Amount = 499
	d = testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonBelowMinAmount) {
		t.Fatalf("amount below minimum: decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateSpecificWaitingPeriod(t *testing.T) {
	facts := baseFacts()
	facts.PolicyStart = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	facts.TreatmentDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	facts.Extracted.Diagnosis = "Type 2 diabetes mellitus"

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonWaitingPeriod) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
	if !strings.Contains(d.Notes, "Diabetes has a 90-day waiting period") {
		t.Fatalf("unexpected notes: %s", d.Notes)
	}
}

func TestAdjudicateInitialWaitingPeriod(t *testing.T) {
	facts := baseFacts()
	facts.PolicyStart = time.Date(2024, 5, 25, 0, 0, 0, 0, time.UTC)
	facts.TreatmentDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonWaitingPeriod) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateInitialWaitingBoundary(t *testing.T) {
	facts := baseFacts()
	facts.TreatmentDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	facts.PolicyStart = facts.TreatmentDate.AddDate(0, 0, -30)

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusApproved {
		t.Fatalf("treatment on day 30: decision = %s, want APPROVED (%s)", d.Decision, d.Notes)
	}

	facts.PolicyStart = facts.TreatmentDate.AddDate(0, 0, -29)
	d = testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonWaitingPeriod) {
		t.Fatalf("treatment on day 29: decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateTreatmentBeforePolicyStart(t *testing.T) {
	facts := baseFacts()
	facts.TreatmentDate = facts.PolicyStart.AddDate(0, 0, -1)

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonPolicyInactive) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateNoDocuments(t *testing.T) {
	facts := baseFacts()
	facts.Extracted = nil

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonMissingDocuments) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
	// neutral base 0.5 penalized by the document-failure factor
	if !almostEqual(d.Confidence, 0.4) {
		t.Fatalf("confidence = %v, want 0.4", d.Confidence)
	}
}

func TestAdjudicateIllegibleDocuments(t *testing.T) {
	facts := baseFacts()
	facts.Extracted.Confidence = 0.2

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonIllegibleDocuments) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
	if !almostEqual(d.Confidence, 0.2*0.8) {
		t.Fatalf("confidence = %v", d.Confidence)
	}
}

func TestAdjudicateInvalidDoctorRegistration(t *testing.T) {
	facts := baseFacts()
	facts.Extracted.DoctorRegCode = "12345"

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonDoctorRegInvalid) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateMultiSegmentDoctorRegistrationAccepted(t *testing.T) {
	facts := baseFacts()
	facts.Extracted.DoctorRegCode = "AYUR/KL/4567/2019"
	facts.Category = domain.CategoryAlternative

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusApproved {
		t.Fatalf("decision = %s (%s)", d.Decision, d.Notes)
	}
}

func TestAdjudicateMissingPrescriptionTrail(t *testing.T) {
	facts := baseFacts()
	facts.Extracted = &domain.ExtractedClaimData{
		PatientName: "Rahul Sharma",
		Diagnosis:   "Viral fever",
		Confidence:  0.8,
	}

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonMissingDocuments) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
	if !strings.Contains(d.Notes, "Prescription from registered doctor is required") {
		t.Fatalf("unexpected notes: %s", d.Notes)
	}
}

func TestAdjudicateExcludedDiagnosis(t *testing.T) {
	facts := baseFacts()
	facts.Category = domain.CategoryDental
	facts.Extracted.Diagnosis = "Teeth whitening"

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonExcludedCondition) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
	if !strings.Contains(d.NextSteps, "exclusions list") {
		t.Fatalf("unexpected next steps: %s", d.NextSteps)
	}
}

func TestAdjudicateVitaminsAllowedWithoutDeficiency(t *testing.T) {
	facts := baseFacts()
	facts.Extracted.Medicines = []string{"Vitamin D3 supplement"}

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusApproved {
		t.Fatalf("decision = %s (%s)", d.Decision, d.Notes)
	}
}

func TestAdjudicateVitaminsCheckedWhenDeficiencyDiagnosed(t *testing.T) {
	facts := baseFacts()
	facts.Extracted.Diagnosis = "Iron deficiency anemia"
	facts.Extracted.Medicines = []string{"Multivitamin"}

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonExcludedCondition) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
	if !strings.Contains(d.Notes, "'Multivitamin' is excluded") {
		t.Fatalf("unexpected notes: %s", d.Notes)
	}
}

func TestAdjudicateMissingPreAuth(t *testing.T) {
	facts := baseFacts()
	facts.Category = domain.CategoryDiagnostic
	facts.Amount = 4000
	facts.Extracted.Medicines = nil
	facts.Extracted.Tests = []string{"MRI Brain"}

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonPreAuthMissing) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
	if !strings.Contains(d.NextSteps, "pre-authorization for MRI Brain") {
		t.Fatalf("unexpected next steps: %s", d.NextSteps)
	}

	facts.PreAuthObtained = true
	d = testEngine().Adjudicate(facts)
	if d.Decision != domain.StatusApproved || !almostEqual(d.ApprovedAmount, 4000) {
		t.Fatalf("with pre-auth: decision = %s, approved = %v (%s)", d.Decision, d.ApprovedAmount, d.Notes)
	}
}

func TestAdjudicateHighValueGoesToManualReview(t *testing.T) {
	facts := baseFacts()
	facts.Category = domain.CategoryPharmacy
	facts.Amount = 30000

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusManualReview {
		t.Fatalf("decision = %s (%s)", d.Decision, d.Notes)
	}
	if !hasReason(d, domain.ReasonHighValueClaim) {
		t.Fatalf("reasons = %v", d.Reasons)
	}
	if d.ApprovedAmount != 0 {
		t.Fatalf("approved = %v, review decisions pay nothing", d.ApprovedAmount)
	}
	if d.Breakdown == nil {
		t.Fatal("breakdown should still be attached for the reviewer")
	}
	if !almostEqual(d.Confidence, 0.85) {
		t.Fatalf("confidence = %v, should stay at base", d.Confidence)
	}
}

func TestAdjudicateLowConfidenceGoesToManualReview(t *testing.T) {
	facts := baseFacts()
	facts.Extracted.Confidence = 0.4

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusManualReview || !hasReason(d, domain.ReasonLowConfidence) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateRepeatSameDayClaimsFlagged(t *testing.T) {
	facts := baseFacts()
	facts.PriorClaimsToday = 2

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusManualReview || !hasReason(d, domain.ReasonFraudIndicator) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateMissingDoctorRegFlagged(t *testing.T) {
	facts := baseFacts()
	facts.Extracted.DoctorRegCode = ""

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusManualReview || !hasReason(d, domain.ReasonMissingDoctorReg) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateAnnualLimitPartial(t *testing.T) {
	facts := baseFacts()
	facts.Category = domain.CategoryDiagnostic
	facts.Amount = 5000
	facts.YTDApproved = 48000
	facts.Extracted.Medicines = nil
	facts.Extracted.Tests = []string{"Lipid profile"}

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusPartial || !hasReason(d, domain.ReasonAnnualLimitExceeded) {
		t.Fatalf("decision = %s, reasons = %v (%s)", d.Decision, d.Reasons, d.Notes)
	}
	if !almostEqual(d.ApprovedAmount, 2000) {
		t.Fatalf("approved = %v, want remaining 2000", d.ApprovedAmount)
	}
}

func TestAdjudicateAnnualLimitLastRupee(t *testing.T) {
	facts := baseFacts()
	facts.YTDApproved = 49999

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusPartial || !hasReason(d, domain.ReasonAnnualLimitExceeded) {
		t.Fatalf("decision = %s, reasons = %v (%s)", d.Decision, d.Reasons, d.Notes)
	}
	if !almostEqual(d.ApprovedAmount, 1) {
		t.Fatalf("approved = %v, want remaining 1", d.ApprovedAmount)
	}
}

func TestAdjudicateAnnualLimitExhausted(t *testing.T) {
	facts := baseFacts()
	facts.YTDApproved = 50000

	d := testEngine().Adjudicate(facts)

	if d.Decision != domain.StatusRejected || !hasReason(d, domain.ReasonAnnualLimitExceeded) {
		t.Fatalf("decision = %s, reasons = %v", d.Decision, d.Reasons)
	}
}

func TestAdjudicateDeterministic(t *testing.T) {
	facts := baseFacts()
	facts.Category = domain.CategoryPharmacy
	facts.Amount = 20000

	first := testEngine().Adjudicate(facts)
	second := testEngine().Adjudicate(facts)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same facts produced different decisions:\n%+v\n%+v", first, second)
	}
}
