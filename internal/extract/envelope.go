// Package extract dispatches content to LLM HTTP providers and normalizes
// the responses into result envelopes.
package extract

import "time"

// Result is the normalized envelope returned by every extraction call.
// Success carries mode/provider/result/timestamp; failure carries Error.
// Envelopes are plain values with no identity beyond the call.
type Result struct {
	Success   bool   `json:"success"`
	Mode      string `json:"mode,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Result    string `json:"result,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

func successResult(mode, provider, text string, now time.Time) Result {
	return Result{
		Success:   true,
		Mode:      mode,
		Provider:  provider,
		Result:    text,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

func errorResult(mode, provider, msg string) Result {
	return Result{
		Success:  false,
		Mode:     mode,
		Provider: provider,
		Error:    msg,
	}
}
