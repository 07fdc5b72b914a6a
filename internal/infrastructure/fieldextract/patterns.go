// Package fieldextract provides pattern-based claim field extraction, used
// as the fallback when the language model is unreachable.
package fieldextract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
)

var (
	patientPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)patient\s*(?:name)?[:\s]+([A-Za-z\s]+?)(?:\n|age|sex|$)`),
		regexp.MustCompile(`(?i)name[:\s]+([A-Za-z\s]+?)(?:\n|age|$)`),
		regexp.MustCompile(`(?i)mr\.?\s+([A-Za-z\s]+)`),
		regexp.MustCompile(`(?i)mrs\.?\s+([A-Za-z\s]+)`),
	}
	doctorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)dr\.?\s+([A-Za-z\s.]+?)(?:\n|mbbs|md|$)`),
		regexp.MustCompile(`(?i)doctor[:\s]+([A-Za-z\s]+?)(?:\n|$)`),
	}
	regNumberPattern = regexp.MustCompile(`([A-Z]+(?:/[A-Z]+)*/\d{4,6}/\d{4})`)
	amountPattern    = regexp.MustCompile(`(?i)(?:total|amount|rs\.?|₹)\s*[:\s]*(\d+(?:,\d+)?(?:\.\d{2})?)`)
	datePatterns     = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
		regexp.MustCompile(`(?i)(\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{4})`),
	}
	diagnosisPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)diagnosis[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)complaints?[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)c/o[:\s]+([^\n]+)`),
	}
	rxPattern = regexp.MustCompile(`(?i)rx[:\s]*([\s\S]+?)(?:advice|next|follow|$)`)
)

// PatternExtractor reads claim fields with regular expressions. Confidence
// grows with the number of core fields recovered, capped well below what a
// clean model extraction reports.
type PatternExtractor struct{}

func NewPatternExtractor() *PatternExtractor { return &PatternExtractor{} }

func (e *PatternExtractor) ExtractFields(_ context.Context, text string) (*domain.ExtractedClaimData, error) {
	data := &domain.ExtractedClaimData{
		PatientName:   firstMatch(patientPatterns, text),
		DoctorName:    firstMatch(doctorPatterns, text),
		Diagnosis:     firstMatch(diagnosisPatterns, text),
		TreatmentDate: firstMatch(datePatterns, text),
	}

	if m := regNumberPattern.FindStringSubmatch(text); m != nil {
		data.DoctorRegCode = m[1]
	}
	data.TotalAmount = largestAmount(text)
	data.Medicines = prescriptionLines(text)

	fieldsFound := 0
	for _, present := range []bool{
		data.PatientName != "",
		data.DoctorName != "",
		data.DoctorRegCode != "",
		data.TotalAmount > 0,
		data.Diagnosis != "",
	} {
		if present {
			fieldsFound++
		}
	}
	data.Confidence = min(0.3+float64(fieldsFound)*0.12, 0.85)

	return data, nil
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// largestAmount treats the biggest labelled amount as the bill total.
func largestAmount(text string) float64 {
	var largest float64
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if amount > largest {
			largest = amount
		}
	}
	return largest
}

func prescriptionLines(text string) []string {
	m := rxPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var medicines []string
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		medicines = append(medicines, line)
		if len(medicines) == 10 {
			break
		}
	}
	return medicines
}
