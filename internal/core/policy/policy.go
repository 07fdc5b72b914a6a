// Package policy loads and serves the versioned coverage rules the
// adjudication engine runs against: limits, sub-limits, co-pays, discounts,
// waiting periods, exclusions and pre-authorization requirements.
package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
)

// Document is the on-disk policy shape (conventionally policy_terms.json).
type Document struct {
	PolicyID          string            `json:"policy_id"`
	Coverage          CoverageDetails   `json:"coverage_details"`
	WaitingPeriods    WaitingPeriods    `json:"waiting_periods"`
	Exclusions        []string          `json:"exclusions"`
	ClaimRequirements ClaimRequirements `json:"claim_requirements"`
	NetworkHospitals  []string          `json:"network_hospitals"`
}

type CoverageDetails struct {
	AnnualLimit        float64 `json:"annual_limit"`
	PerClaimLimit      float64 `json:"per_claim_limit"`
	FamilyFloaterLimit float64 `json:"family_floater_limit"`

	Consultation *CategoryTerms `json:"consultation_fees"`
	Diagnostic   *CategoryTerms `json:"diagnostic_tests"`
	Pharmacy     *CategoryTerms `json:"pharmacy"`
	Dental       *CategoryTerms `json:"dental"`
	Vision       *CategoryTerms `json:"vision"`
	Alternative  *CategoryTerms `json:"alternative_medicine"`
}

// CategoryTerms carries the per-category coverage rules. Percentages are
// stored as configured (10 means 10%); accessors return fractions.
type CategoryTerms struct {
	Covered                *bool   `json:"covered,omitempty"`
	SubLimit               float64 `json:"sub_limit"`
	CopayPercent           float64 `json:"copay_percentage,omitempty"`
	BrandedCopayPercent    float64 `json:"branded_drugs_copay,omitempty"`
	NetworkDiscountPercent float64 `json:"network_discount,omitempty"`
	CosmeticAllowed        bool    `json:"cosmetic_procedures,omitempty"`
}

type WaitingPeriods struct {
	InitialDays      int            `json:"initial_waiting"`
	PreExistingDays  int            `json:"pre_existing_diseases"`
	SpecificAilments map[string]int `json:"specific_ailments"`
}

type ClaimRequirements struct {
	SubmissionTimelineDays int      `json:"submission_timeline_days"`
	MinimumClaimAmount     float64  `json:"minimum_claim_amount"`
	PreAuthorization       []string `json:"pre_authorization"`
}

// Configuration is an immutable, validated policy usable by the engine.
type Configuration struct {
	doc Document
}

// Load reads a policy document from path. A missing or unreadable file falls
// back to the built-in default policy: policy unavailability must never block
// claim intake. A present but malformed document is a system fault.
func Load(path string) (*Configuration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Default(), nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrPolicyConfig, "parse policy document", err)
	}
	return New(doc)
}

// New validates a policy document and wraps it as a Configuration.
func New(doc Document) (*Configuration, error) {
	if err := validate(doc); err != nil {
		return nil, domain.WrapError(domain.ErrPolicyConfig, "validate policy document", err)
	}
	return &Configuration{doc: doc}, nil
}

// Default returns the built-in policy used when no document is available.
func Default() *Configuration {
	return &Configuration{doc: DefaultDocument()}
}

func DefaultDocument() Document {
	covered := true
	return Document{
		PolicyID: "PLUM_OPD_2024",
		Coverage: CoverageDetails{
			AnnualLimit:        50000,
			PerClaimLimit:      5000,
			FamilyFloaterLimit: 150000,
			Consultation: &CategoryTerms{
				Covered:                &covered,
				SubLimit:               2000,
				CopayPercent:           10,
				NetworkDiscountPercent: 15,
			},
			Diagnostic: &CategoryTerms{Covered: &covered, SubLimit: 10000},
			Pharmacy:   &CategoryTerms{Covered: &covered, SubLimit: 15000, BrandedCopayPercent: 30},
			Dental:     &CategoryTerms{Covered: &covered, SubLimit: 10000, CosmeticAllowed: false},
			Vision:     &CategoryTerms{Covered: &covered, SubLimit: 5000},
			Alternative: &CategoryTerms{
				Covered:  &covered,
				SubLimit: 8000,
			},
		},
		WaitingPeriods: WaitingPeriods{
			InitialDays:     30,
			PreExistingDays: 365,
			SpecificAilments: map[string]int{
				"diabetes":     90,
				"hypertension": 90,
			},
		},
		Exclusions: []string{
			"Cosmetic procedures",
			"Weight loss treatments",
			"Infertility treatments",
			"Experimental treatments",
			"Self-inflicted injuries",
		},
		ClaimRequirements: ClaimRequirements{
			SubmissionTimelineDays: 30,
			MinimumClaimAmount:     500,
			PreAuthorization:       []string{"mri", "ct scan", "surgery", "hospitalization"},
		},
		NetworkHospitals: []string{"apollo", "fortis", "max", "manipal", "narayana"},
	}
}

func validate(doc Document) error {
	if doc.Coverage.AnnualLimit < 0 || doc.Coverage.PerClaimLimit < 0 {
		return fmt.Errorf("negative coverage limit")
	}
	if doc.ClaimRequirements.MinimumClaimAmount < 0 {
		return fmt.Errorf("negative minimum claim amount")
	}
	if doc.WaitingPeriods.InitialDays < 0 {
		return fmt.Errorf("negative initial waiting period")
	}
	for ailment, days := range doc.WaitingPeriods.SpecificAilments {
		if days < 0 {
			return fmt.Errorf("negative waiting period for %q", ailment)
		}
	}
	for _, cat := range domain.Categories() {
		terms := categoryTerms(doc.Coverage, cat)
		if terms == nil {
			continue
		}
		if terms.SubLimit < 0 {
			return fmt.Errorf("negative sub-limit for %s", cat)
		}
		if terms.CopayPercent < 0 || terms.BrandedCopayPercent < 0 || terms.NetworkDiscountPercent < 0 {
			return fmt.Errorf("negative percentage for %s", cat)
		}
	}
	return nil
}

// categoryTerms maps the closed category enum onto the document. The switch
// is exhaustive over domain.Category.
func categoryTerms(cov CoverageDetails, cat domain.Category) *CategoryTerms {
	switch cat {
	case domain.CategoryConsultation:
		return cov.Consultation
	case domain.CategoryDiagnostic:
		return cov.Diagnostic
	case domain.CategoryPharmacy:
		return cov.Pharmacy
	case domain.CategoryDental:
		return cov.Dental
	case domain.CategoryVision:
		return cov.Vision
	case domain.CategoryAlternative:
		return cov.Alternative
	}
	return nil
}

func (c *Configuration) PolicyID() string { return c.doc.PolicyID }

// Doc returns a copy of the underlying document, e.g. for the policy
// endpoint.
func (c *Configuration) Doc() Document { return c.doc }

func (c *Configuration) AnnualLimit() float64        { return c.doc.Coverage.AnnualLimit }
func (c *Configuration) PerClaimLimit() float64      { return c.doc.Coverage.PerClaimLimit }
func (c *Configuration) MinimumClaimAmount() float64 { return c.doc.ClaimRequirements.MinimumClaimAmount }

// Covered reports whether the category is payable under this policy.
// Categories absent from the document default to covered.
func (c *Configuration) Covered(cat domain.Category) bool {
	terms := categoryTerms(c.doc.Coverage, cat)
	if terms == nil || terms.Covered == nil {
		return true
	}
	return *terms.Covered
}

// SubLimit returns the category sub-limit, falling back to the global
// per-claim limit for unmapped categories.
func (c *Configuration) SubLimit(cat domain.Category) float64 {
	terms := categoryTerms(c.doc.Coverage, cat)
	if terms == nil || terms.SubLimit == 0 {
		return c.PerClaimLimit()
	}
	return terms.SubLimit
}

// Copay returns the co-pay fraction for the category. Consultation carries a
// flat co-pay; pharmacy adds one only for branded drugs; everything else is 0.
func (c *Configuration) Copay(cat domain.Category, branded bool) float64 {
	terms := categoryTerms(c.doc.Coverage, cat)
	if terms == nil {
		return 0
	}
	switch {
	case cat == domain.CategoryConsultation:
		return terms.CopayPercent / 100
	case cat == domain.CategoryPharmacy && branded:
		return terms.BrandedCopayPercent / 100
	}
	return 0
}

// NetworkDiscount returns the in-network discount fraction. Only consultation
// carries one under current policies.
func (c *Configuration) NetworkDiscount(cat domain.Category) float64 {
	if cat != domain.CategoryConsultation {
		return 0
	}
	terms := c.doc.Coverage.Consultation
	if terms == nil {
		return 0
	}
	return terms.NetworkDiscountPercent / 100
}

// InitialWaitingDays returns the initial waiting period, defaulting to 30
// days when the document leaves it unset.
func (c *Configuration) InitialWaitingDays() int {
	if c.doc.WaitingPeriods.InitialDays == 0 {
		return 30
	}
	return c.doc.WaitingPeriods.InitialDays
}

// AilmentWait pairs a specific ailment with its waiting period in days.
type AilmentWait struct {
	Ailment string
	Days    int
}

// MatchingAilments returns every specific ailment named in the condition
// text (case-insensitive substring), sorted by ailment so outcomes are
// stable regardless of document key order.
func (c *Configuration) MatchingAilments(condition string) []AilmentWait {
	if condition == "" {
		return nil
	}
	lower := strings.ToLower(condition)
	var matches []AilmentWait
	for name, days := range c.doc.WaitingPeriods.SpecificAilments {
		if strings.Contains(lower, strings.ToLower(name)) {
			matches = append(matches, AilmentWait{Ailment: name, Days: days})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Ailment < matches[j].Ailment })
	return matches
}

// SpecificWaitingPeriod returns the first matching ailment-specific waiting
// period for the condition text.
func (c *Configuration) SpecificWaitingPeriod(condition string) (ailment string, days int, ok bool) {
	matches := c.MatchingAilments(condition)
	if len(matches) == 0 {
		return "", 0, false
	}
	return matches[0].Ailment, matches[0].Days, true
}

// WaitingPeriodDays returns the waiting period applicable to a condition:
// the specific-ailment period when the condition matches one, otherwise the
// initial waiting period.
func (c *Configuration) WaitingPeriodDays(condition string) int {
	if _, days, ok := c.SpecificWaitingPeriod(condition); ok {
		return days
	}
	return c.InitialWaitingDays()
}

// RequiresPreAuth reports whether the procedure text names anything on the
// pre-authorization list.
func (c *Configuration) RequiresPreAuth(procedure string) bool {
	keywords := c.doc.ClaimRequirements.PreAuthorization
	if len(keywords) == 0 {
		keywords = DefaultDocument().ClaimRequirements.PreAuthorization
	}
	lower := strings.ToLower(procedure)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// IsNetworkHospital reports whether the hospital name matches the configured
// network list (case-insensitive substring).
func (c *Configuration) IsNetworkHospital(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, network := range c.doc.NetworkHospitals {
		if strings.Contains(lower, strings.ToLower(network)) {
			return true
		}
	}
	return false
}
