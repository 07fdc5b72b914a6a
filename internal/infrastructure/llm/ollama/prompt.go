package ollama

import "fmt"

func buildExtractionPrompt(text string) string {
	return fmt.Sprintf(`You are a medical document data extractor. Extract information from this text of medical documents (prescriptions, bills, test reports).

DOCUMENT TEXT:
%s

Extract and return ONLY a valid JSON object with these fields (use null if not found):
{
    "patient_name": "full name of patient",
    "doctor_name": "full name of doctor",
    "doctor_reg_number": "registration number like KA/12345/2015",
    "hospital_name": "hospital or clinic name",
    "diagnosis": "medical diagnosis or chief complaint",
    "treatment_date": "date in YYYY-MM-DD format",
    "medicines": ["list of prescribed medicines"],
    "tests": ["list of diagnostic tests"],
    "total_amount": 0.00,
    "bill_items": [
        {"description": "item name", "amount": 0.00}
    ],
    "confidence": 0.0 to 1.0 based on data clarity
}

Important rules:
1. Extract EXACT values from the text
2. For amounts, extract numbers only (no currency symbols)
3. For dates, convert to YYYY-MM-DD format
4. Doctor registration format is typically: STATE/NUMBER/YEAR (e.g., KA/12345/2015)
5. Return ONLY the JSON, no other text

JSON:`, text)
}
