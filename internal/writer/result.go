package writer

import "fmt"

// LogResult reports the outcome of a write. Warnings never affect Success;
// any error clears it.
type LogResult struct {
	Success  bool     `json:"success"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

func newResult() *LogResult {
	return &LogResult{Success: true, Warnings: []string{}, Errors: []string{}}
}

func (r *LogResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *LogResult) failf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Success = false
}
