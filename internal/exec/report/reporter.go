// Package report renders terminal outcomes into the stable result shape
// returned to callers.
package report

import (
	"github.com/vietddude/dbexec/internal/core/domain"
)

// Advisory strings chosen by the transient flag.
const (
	SuggestionTransient = "Safe to retry automatically; retries were already attempted."
	SuggestionPermanent = "Requires operator attention; retrying will not help."
)

// StructuredResult is the shape produced for every operation. It is the only
// thing callers ever observe; no raw error escapes the core.
type StructuredResult struct {
	Success        bool   `json:"success"`
	Data           any    `json:"data,omitempty"`
	Error          string `json:"error,omitempty"`
	DiagnosticCode string `json:"diagnosticCode,omitempty"`
	IsTransient    bool   `json:"isTransient"`
	Suggestion     string `json:"suggestion,omitempty"`
}

// Render maps an Outcome to a StructuredResult. It performs no I/O and
// cannot fail: an internal rendering fault degrades to a minimal fallback
// result instead of propagating.
func Render[T any](o domain.Outcome[T]) (res StructuredResult) {
	defer func() {
		if recover() != nil {
			res = StructuredResult{
				Success:    false,
				Error:      "internal error while rendering result",
				Suggestion: SuggestionPermanent,
			}
		}
	}()

	if o.OK() {
		return StructuredResult{Success: true, Data: o.Value}
	}

	f := o.Failure
	res = StructuredResult{
		Success:        false,
		Error:          f.Message,
		DiagnosticCode: f.Classification.Code,
		IsTransient:    f.Classification.Transient(),
	}
	if res.IsTransient {
		res.Suggestion = SuggestionTransient
	} else {
		res.Suggestion = SuggestionPermanent
	}
	return res
}
