package models

// ElementCounts tallies structural elements in one side of a comparison
type ElementCounts struct {
	Tables     int `json:"tables"`
	Images     int `json:"images"`
	Lists      int `json:"lists"`
	Callouts   int `json:"callouts"`
	CodeBlocks int `json:"code_blocks"`
	Headings   int `json:"headings"`
}

// ValidationReport is the outcome of comparing source HTML against a block
// tree or a fetched remote page.
type ValidationReport struct {
	SourceCounts     ElementCounts `json:"sourceCounts"`
	NotionCounts     ElementCounts `json:"notionCounts"`
	HasErrors        bool          `json:"hasErrors"`
	Errors           []string      `json:"errors"`
	Warnings         []string      `json:"warnings"`
	Coverage         float64       `json:"coverage"`
	AdjustedCoverage float64       `json:"adjustedCoverage"`
	MissingSpans     []string      `json:"missingSpans"`
	ExtraSpans       []string      `json:"extraSpans,omitempty"`
	Inversions       int           `json:"inversions,omitempty"`
	Method           string        `json:"method"` // "exact" or "fuzzy"
}

// AddError records an error and flips HasErrors
func (r *ValidationReport) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.HasErrors = true
}

// AddWarning records a non-fatal finding
func (r *ValidationReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
