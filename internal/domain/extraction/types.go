// Package extraction defines the boundary to the external AI document
// extractor. The extractor itself (OCR, prompting) is out of scope; this
// package owns the wire shapes and their tolerant decoding.
package extraction

// RawLineItem is one record as extracted from a scanned balance sheet.
type RawLineItem struct {
	// Label is the free-text account description as extracted.
	Label string `json:"label"`

	// SuggestedCode is an optional chart code guess from the extractor.
	SuggestedCode string `json:"suggestedCode,omitempty"`

	// YearValues maps a year tag to a raw numeric string in source locale
	// formatting. Tags are plain years ("2024"), or a year with an
	// inflation-adjustment marker ("2024 Enflasyon Düzeltmeli").
	YearValues map[string]string `json:"yearValues"`
}

// Meta is the document-level tuple the extractor may return alongside items.
type Meta struct {
	CompanyName string `json:"companyName"`
	TaxID       string `json:"taxId"`
	Year        int    `json:"year"`
	Period      string `json:"period"`
}

// RawExtractionResult is the single tagged shape the rest of the pipeline
// consumes. Both extractor wire formats (legacy bare array and the current
// object envelope) decode into it; extractor failure degrades to an empty
// result with Failed set rather than an error.
type RawExtractionResult struct {
	// Meta is present only for the object envelope format.
	Meta *Meta `json:"meta,omitempty"`

	// Items is the ordered sequence of extracted records.
	Items []RawLineItem `json:"items"`

	// Failed marks a degraded result: the extractor was unreachable or
	// returned something undecodable. Callers proceed to manual entry.
	Failed bool `json:"extractionFailed,omitempty"`
}

// Empty reports whether the result carries no usable line items.
func (r *RawExtractionResult) Empty() bool {
	return len(r.Items) == 0
}

// FailedResult is the canonical degraded result.
func FailedResult() *RawExtractionResult {
	return &RawExtractionResult{Failed: true}
}
