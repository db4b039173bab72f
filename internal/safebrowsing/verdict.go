package safebrowsing

import "encoding/json"

// Status is the tri-state outcome of a URL check.
type Status string

const (
	// StatusSafe means the API reported no matches.
	StatusSafe Status = "safe"
	// StatusUnsafe means the API reported at least one match.
	StatusUnsafe Status = "unsafe"
	// StatusError means the check could not be completed.
	StatusError Status = "error"
)

// Verdict is the result of one check. Matches are the API's match records
// exactly as returned; Message is set only for StatusError.
type Verdict struct {
	Status  Status            `json:"verdict"`
	Matches []json.RawMessage `json:"matches,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Safe builds a safe verdict.
func Safe() Verdict {
	return Verdict{Status: StatusSafe}
}

// Unsafe builds an unsafe verdict carrying matches.
func Unsafe(matches []json.RawMessage) Verdict {
	return Verdict{Status: StatusUnsafe, Matches: matches}
}

// Failed builds an error verdict.
func Failed(message string) Verdict {
	return Verdict{Status: StatusError, Message: message}
}

// MatchesJSON renders the matches as indented JSON for display.
func (v Verdict) MatchesJSON() string {
	if len(v.Matches) == 0 {
		return "[]"
	}
	data, err := json.MarshalIndent(v.Matches, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
