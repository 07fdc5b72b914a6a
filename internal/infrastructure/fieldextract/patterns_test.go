package fieldextract

import (
	"context"
	"errors"
	"testing"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
)

const sampleReceipt = `City Care Clinic
Patient Name: Rahul Sharma
Age: 34
Dr. Anita Mehta MBBS
Reg: MH/12345/2020
Date: 01/06/2024
Diagnosis: Viral fever
Rx:
Paracetamol 650mg
Cetirizine 10mg
Advice: rest and fluids
Total: Rs. 1,500.00`

func TestPatternExtraction(t *testing.T) {
	data, err := NewPatternExtractor().ExtractFields(context.Background(), sampleReceipt)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}

	if data.PatientName != "Rahul Sharma" {
		t.Errorf("patient = %q", data.PatientName)
	}
	if data.DoctorRegCode != "MH/12345/2020" {
		t.Errorf("reg code = %q", data.DoctorRegCode)
	}
	if data.Diagnosis != "Viral fever" {
		t.Errorf("diagnosis = %q", data.Diagnosis)
	}
	if data.TotalAmount != 1500 {
		t.Errorf("total = %v", data.TotalAmount)
	}
	if len(data.Medicines) == 0 {
		t.Error("no medicines extracted")
	}
	// all five core fields present
	if data.Confidence != 0.85 {
		t.Errorf("confidence = %v", data.Confidence)
	}
}

func TestPatternExtractionSparseText(t *testing.T) {
	data, err := NewPatternExtractor().ExtractFields(context.Background(), "illegible scan noise")
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if data.Confidence != 0.3 {
		t.Errorf("confidence = %v, want floor 0.3", data.Confidence)
	}
}

type failingExtractor struct{}

func (failingExtractor) ExtractFields(context.Context, string) (*domain.ExtractedClaimData, error) {
	return nil, errors.New("model endpoint down")
}

func TestChainFallsBackOnPrimaryFailure(t *testing.T) {
	chain := WithFallback(failingExtractor{}, NewPatternExtractor())

	data, err := chain.ExtractFields(context.Background(), sampleReceipt)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if data.PatientName != "Rahul Sharma" {
		t.Fatalf("fallback did not run: %+v", data)
	}
}
