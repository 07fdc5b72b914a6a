// Package ollama extracts structured claim fields from document text using
// a locally hosted model.
package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
	"github.com/plumclaims/opd-adjudicator/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// WithExecutor enables retry/breaker protection on model calls.
func (c *Client) WithExecutor(executor *resilience.Executor) *Client {
	c.executor = executor
	return c
}

// FieldExtractor implements ports.FieldExtractor on top of the model.
type FieldExtractor struct {
	client *Client
}

func NewFieldExtractor(client *Client) *FieldExtractor {
	return &FieldExtractor{client: client}
}

// ExtractFields asks the model for a JSON rendition of the document text.
// A transport failure is an error (callers fall back to pattern extraction);
// a reply that is not parseable JSON yields a low-confidence empty record,
// which downstream rules route to manual review.
func (f *FieldExtractor) ExtractFields(ctx context.Context, text string) (*domain.ExtractedClaimData, error) {
	respText, err := f.client.generateJSON(ctx, buildExtractionPrompt(text))
	if err != nil {
		return nil, err
	}
	return parseExtraction(respText), nil
}

func parseExtraction(raw string) *domain.ExtractedClaimData {
	var payload struct {
		PatientName   string            `json:"patient_name"`
		DoctorName    string            `json:"doctor_name"`
		DoctorRegCode string            `json:"doctor_reg_number"`
		HospitalName  string            `json:"hospital_name"`
		Diagnosis     string            `json:"diagnosis"`
		TreatmentDate string            `json:"treatment_date"`
		Medicines     []string          `json:"medicines"`
		Tests         []string          `json:"tests"`
		TotalAmount   float64           `json:"total_amount"`
		BillItems     []domain.BillItem `json:"bill_items"`
		Confidence    *float64          `json:"confidence"`
	}

	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return &domain.ExtractedClaimData{Confidence: 0.3}
	}

	confidence := 0.7
	if payload.Confidence != nil {
		confidence = *payload.Confidence
	}

	return &domain.ExtractedClaimData{
		PatientName:   payload.PatientName,
		DoctorName:    payload.DoctorName,
		DoctorRegCode: payload.DoctorRegCode,
		HospitalName:  payload.HospitalName,
		Diagnosis:     payload.Diagnosis,
		TreatmentDate: payload.TreatmentDate,
		Medicines:     payload.Medicines,
		Tests:         payload.Tests,
		TotalAmount:   payload.TotalAmount,
		BillItems:     payload.BillItems,
		Confidence:    confidence,
	}
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0.1,
			"num_predict": 2000,
		},
	}

	var response struct {
		Response string `json:"response"`
	}

	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}

// extractJSONObject salvages the JSON object from replies that wrap it in
// prose despite the format hint.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
