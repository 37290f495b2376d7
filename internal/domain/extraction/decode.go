package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// envelope is the current extractor response format.
type envelope struct {
	CompanyName string        `json:"companyName"`
	TaxID       string        `json:"taxId"`
	Year        int           `json:"year"`
	Period      string        `json:"period"`
	Items       []RawLineItem `json:"items"`
}

// Decode parses an extractor response into the tagged RawExtractionResult.
//
// Two wire formats exist: the legacy format is a bare JSON array of line
// items; the current format is an object envelope with company metadata and
// an "items" array. The format is decided once here by the leading token,
// not by key probing at call sites.
//
// AI output is routinely slightly malformed (trailing commas, markdown
// fences); strict parsing is retried once through json-repair before
// giving up.
func Decode(data []byte) (*RawExtractionResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty extractor response")
	}

	result, err := decodeStrict(trimmed)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.RepairJSON(string(trimmed))
	if repairErr != nil {
		return nil, fmt.Errorf("decode extractor response: %w", err)
	}

	result, retryErr := decodeStrict([]byte(repaired))
	if retryErr != nil {
		return nil, fmt.Errorf("decode extractor response after repair: %w", retryErr)
	}
	return result, nil
}

func decodeStrict(data []byte) (*RawExtractionResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty extractor response")
	}

	switch trimmed[0] {
	case '[':
		// Legacy format: bare array of line items, no document metadata.
		var items []RawLineItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("legacy array format: %w", err)
		}
		return &RawExtractionResult{Items: items}, nil

	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("envelope format: %w", err)
		}
		result := &RawExtractionResult{Items: env.Items}
		if env.CompanyName != "" || env.TaxID != "" || env.Year != 0 {
			result.Meta = &Meta{
				CompanyName: env.CompanyName,
				TaxID:       env.TaxID,
				Year:        env.Year,
				Period:      env.Period,
			}
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unrecognized extractor response (leading byte %q)", trimmed[0])
	}
}
