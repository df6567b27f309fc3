package verifykit

import "github.com/optimode/verifykit/types"

// BatchResult is the full outcome of a batch verification: one verdict per
// input address, in input order, plus the aggregate statistics.
type BatchResult struct {
	Results    []types.Verdict  `json:"results"`
	Statistics types.Statistics `json:"statistics"`
}

// Invalid returns the verdicts that did not classify as valid.
func (r *BatchResult) Invalid() []types.Verdict {
	var out []types.Verdict
	for _, v := range r.Results {
		if !v.IsValid {
			out = append(out, v)
		}
	}
	return out
}

// ByCategory returns the verdicts classified with the given category.
func (r *BatchResult) ByCategory(c types.Category) []types.Verdict {
	var out []types.Verdict
	for _, v := range r.Results {
		if v.Category == c {
			out = append(out, v)
		}
	}
	return out
}
