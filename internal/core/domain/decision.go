package domain

// ReasonCode is the closed taxonomy of machine-readable decision reasons.
// Business-rule outcomes carry these instead of errors.
type ReasonCode string

const (
	ReasonPolicyInactive      ReasonCode = "POLICY_INACTIVE"
	ReasonWaitingPeriod       ReasonCode = "WAITING_PERIOD"
	ReasonMissingDocuments    ReasonCode = "MISSING_DOCUMENTS"
	ReasonIllegibleDocuments  ReasonCode = "ILLEGIBLE_DOCUMENTS"
	ReasonDoctorRegInvalid    ReasonCode = "DOCTOR_REG_INVALID"
	ReasonServiceNotCovered   ReasonCode = "SERVICE_NOT_COVERED"
	ReasonExcludedCondition   ReasonCode = "EXCLUDED_CONDITION"
	ReasonPreAuthMissing      ReasonCode = "PRE_AUTH_MISSING"
	ReasonBelowMinAmount      ReasonCode = "BELOW_MIN_AMOUNT"
	ReasonPerClaimExceeded    ReasonCode = "PER_CLAIM_EXCEEDED"
	ReasonSubLimitExceeded    ReasonCode = "SUB_LIMIT_EXCEEDED"
	ReasonAnnualLimitExceeded ReasonCode = "ANNUAL_LIMIT_EXCEEDED"
	ReasonHighValueClaim      ReasonCode = "HIGH_VALUE_CLAIM"
	ReasonLowConfidence       ReasonCode = "LOW_CONFIDENCE"
	ReasonFraudIndicator      ReasonCode = "FRAUD_INDICATOR"
	ReasonMissingDoctorReg    ReasonCode = "MISSING_DOCTOR_REG"

	// ReasonProcessingError marks system faults surfaced by the orchestrator,
	// never emitted by the engine itself.
	ReasonProcessingError ReasonCode = "PROCESSING_ERROR"
)

type AdjustmentType string

const (
	AdjustmentNetworkDiscount AdjustmentType = "network_discount"
	AdjustmentCopay           AdjustmentType = "copay"
	AdjustmentPerClaimLimit   AdjustmentType = "per_claim_limit"
	AdjustmentSubLimit        AdjustmentType = "sub_limit"
	AdjustmentAnnualLimit     AdjustmentType = "annual_limit"
)

// Adjustment is one itemized deduction applied during amount computation.
// Amount is the (negative) delta to the running amount.
type Adjustment struct {
	Type       AdjustmentType `json:"type"`
	Category   Category       `json:"category,omitempty"`
	Percentage float64        `json:"percentage,omitempty"`
	Limit      float64        `json:"limit,omitempty"`
	Remaining  float64        `json:"remaining,omitempty"`
	Amount     float64        `json:"amount"`
}

type Breakdown struct {
	OriginalAmount float64      `json:"original_amount"`
	Adjustments    []Adjustment `json:"adjustments"`
	FinalAmount    float64      `json:"final_amount"`
}

// AdjudicationDecision is the engine's output for a single claim. It is
// constructed once per call and never mutated afterwards; the caller owns
// persistence.
type AdjudicationDecision struct {
	ClaimID        string       `json:"claim_id"`
	Decision       ClaimStatus  `json:"decision"`
	ApprovedAmount float64      `json:"approved_amount"`
	Reasons        []ReasonCode `json:"rejection_reasons"`
	Confidence     float64      `json:"confidence_score"`
	Notes          string       `json:"notes"`
	NextSteps      string       `json:"next_steps"`
	Breakdown      *Breakdown   `json:"breakdown,omitempty"`
}
