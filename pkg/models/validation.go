package models

// ValidationResult is the outcome of a dialect-aware dry run on generated
// SQL. Produced fresh per call and never persisted; only the downstream
// execution outcome is recorded.
type ValidationResult struct {
	IsValid bool `json:"is_valid"`
	// Warning is set when the statement could not be verified because the
	// external database was unreachable. The query's intrinsic correctness
	// is unknown, so validation degrades instead of failing.
	Warning bool    `json:"warning"`
	Error   string  `json:"error,omitempty"`
	Dialect Dialect `json:"dialect"`
}

// Evaluation is the confidence verdict shown to a user before execution:
// a deterministic rule-cascade score with a one-line explanation.
type Evaluation struct {
	Explanation string `json:"explanation"`
	Score       int    `json:"score"`
}
