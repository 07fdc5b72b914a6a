package domain

import (
	"fmt"
	"strings"
	"time"
)

type ClaimStatus string

const (
	StatusPending      ClaimStatus = "PENDING"
	StatusProcessing   ClaimStatus = "PROCESSING"
	StatusApproved     ClaimStatus = "APPROVED"
	StatusRejected     ClaimStatus = "REJECTED"
	StatusPartial      ClaimStatus = "PARTIAL"
	StatusManualReview ClaimStatus = "MANUAL_REVIEW"
)

// Category is the closed set of outpatient service categories. Policy
// accessors switch exhaustively on it, so adding a category is a
// compile-time-checked change.
type Category string

const (
	CategoryConsultation Category = "consultation"
	CategoryDiagnostic   Category = "diagnostic"
	CategoryPharmacy     Category = "pharmacy"
	CategoryDental       Category = "dental"
	CategoryVision       Category = "vision"
	CategoryAlternative  Category = "alternative"
)

func Categories() []Category {
	return []Category{
		CategoryConsultation,
		CategoryDiagnostic,
		CategoryPharmacy,
		CategoryDental,
		CategoryVision,
		CategoryAlternative,
	}
}

func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case CategoryConsultation, CategoryDiagnostic, CategoryPharmacy,
		CategoryDental, CategoryVision, CategoryAlternative:
		return c, nil
	}
	return "", WrapError(ErrInvalidInput, "parse category", fmt.Errorf("unknown claim category: %q", raw))
}

// Claim is the persisted claim record. Identity and treatment fields may be
// overwritten by values extracted from the submitted documents.
type Claim struct {
	ClaimID    string   `json:"claim_id"`
	PolicyID   string   `json:"policy_id"`
	EmployeeID string   `json:"employee_id"`
	Category   Category `json:"claim_category"`

	PatientName   string    `json:"patient_name"`
	ClaimAmount   float64   `json:"claim_amount"`
	TreatmentDate time.Time `json:"treatment_date"`

	Diagnosis       string `json:"diagnosis,omitempty"`
	DoctorName      string `json:"doctor_name,omitempty"`
	DoctorRegCode   string `json:"doctor_reg_number,omitempty"`
	HospitalName    string `json:"hospital_name,omitempty"`
	PreAuthObtained bool   `json:"pre_auth_obtained"`

	Documents     []string            `json:"documents"`
	ExtractedText string              `json:"extracted_text,omitempty"`
	Extracted     *ExtractedClaimData `json:"extracted_data,omitempty"`

	Status         ClaimStatus  `json:"status"`
	ApprovedAmount float64      `json:"approved_amount"`
	Reasons        []ReasonCode `json:"decision_reasons"`
	Confidence     float64      `json:"confidence_score"`
	Notes          string       `json:"notes,omitempty"`
	NextSteps      string       `json:"next_steps,omitempty"`
	Breakdown      *Breakdown   `json:"breakdown,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Running approved total for the employee's policy year, refreshed when
	// the claim is processed.
	YTDClaimed float64 `json:"ytd_claimed"`
}

// ApplyDecision merges an adjudication outcome into the claim record.
func (c *Claim) ApplyDecision(d AdjudicationDecision, at time.Time) {
	c.Status = d.Decision
	c.ApprovedAmount = d.ApprovedAmount
	c.Reasons = d.Reasons
	c.Confidence = d.Confidence
	c.Notes = d.Notes
	c.NextSteps = d.NextSteps
	c.Breakdown = d.Breakdown
	t := at.UTC()
	c.ProcessedAt = &t
}

// BillItem is a single line on an itemized bill.
type BillItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// ExtractedClaimData is the structured output of the document extraction
// stage. A nil *ExtractedClaimData means no documents were processed at all,
// which is distinct from a populated record with empty fields.
type ExtractedClaimData struct {
	PatientName   string     `json:"patient_name,omitempty"`
	DoctorName    string     `json:"doctor_name,omitempty"`
	DoctorRegCode string     `json:"doctor_reg_number,omitempty"`
	HospitalName  string     `json:"hospital_name,omitempty"`
	Diagnosis     string     `json:"diagnosis,omitempty"`
	TreatmentDate string     `json:"treatment_date,omitempty"`
	Medicines     []string   `json:"medicines,omitempty"`
	Tests         []string   `json:"tests,omitempty"`
	TotalAmount   float64    `json:"total_amount,omitempty"`
	BillItems     []BillItem `json:"bill_items,omitempty"`
	Confidence    float64    `json:"confidence"`
}

// ClaimFacts is everything the adjudication engine consumes for one claim.
// The engine never looks anything up; the orchestrator assembles these.
type ClaimFacts struct {
	ClaimID       string
	Amount        float64
	Category      Category
	TreatmentDate time.Time
	Extracted     *ExtractedClaimData

	// YTDApproved is the employee's cumulative approved amount this policy
	// year, before this claim.
	YTDApproved float64

	// PolicyStart zero value means unknown; the engine then assumes the
	// policy started one year before now.
	PolicyStart time.Time

	NetworkHospital  bool
	PreAuthObtained  bool
	PriorClaimsToday int
}

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	EmployeeID string
	Status     ClaimStatus
	Limit      int
	Offset     int
}

// ClaimStats is the aggregate view served by the stats endpoint.
type ClaimStats struct {
	Total        int     `json:"total_claims"`
	Approved     int     `json:"approved"`
	Rejected     int     `json:"rejected"`
	Partial      int     `json:"partial"`
	Pending      int     `json:"pending"`
	ManualReview int     `json:"manual_review"`
	ApprovalRate float64 `json:"approval_rate"`
}
