package model

// ExecutionResult is the normalized outcome of running candidate code.
// Simulated marks the offline fallback produced when the sandbox is
// unreachable; it must stay distinguishable from a genuine sandbox result
// for audit purposes.
type ExecutionResult struct {
	Succeeded       bool    `json:"succeeded"`
	Output          string  `json:"output"`
	Error           string  `json:"error,omitempty"`
	ExecutionTimeMS float64 `json:"execution_time_ms"`
	Simulated       bool    `json:"simulated"`
}
