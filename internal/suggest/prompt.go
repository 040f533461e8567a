package suggest

import (
	"fmt"
	"strings"

	"dmsapi/internal/naming"
)

func buildRenamePrompt(filename string, types []naming.DocType) string {
	codes := make([]string, 0, len(types))
	for _, t := range types {
		codes = append(codes, fmt.Sprintf("%s (%s)", t.Code, t.Label))
	}
	return fmt.Sprintf(`You are a document naming assistant. Analyze this filename and suggest a properly formatted name following the convention: DKC-[TYPE]-[COMPANY]-[ID]-[DDMMYYYY]

Current filename: %q

Rules:
- TYPE must be one of: %s
- COMPANY is the company name without spaces or punctuation
- ID is the document's identifier (invoice number, contract number, etc.) using only letters and digits
- DATE is in DDMMYYYY format

Respond ONLY with a JSON object in this exact format, no additional text:
{
  "suggested": "DKC-TYPE-Company-ID-DDMMYYYY",
  "confidence": 0.85,
  "breakdown": {"type": "INV", "company": "CompanyName", "serial": "123456", "date": "02122025"},
  "reasoning": "Brief explanation of choices"
}`, filename, strings.Join(codes, ", "))
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
