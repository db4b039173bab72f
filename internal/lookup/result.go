// Package lookup answers free-text questions with encyclopedia summaries.
package lookup

import (
	"errors"
	"fmt"
	"strings"
)

// Messages shown for each lookup outcome other than a found summary.
const (
	MsgNotFound    = "Sorry, I couldn't find anything on that topic."
	MsgPageMissing = "Sorry, I couldn't find a page matching your query."
	MsgUnknown     = "Oops, something went wrong."
)

// ErrPageMissing is returned by a Source when the title has no page.
var ErrPageMissing = errors.New("page does not exist")

// DisambiguationError is returned by a Source when the title names a
// disambiguation page.
type DisambiguationError struct {
	Title   string
	Options []string
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("%q may refer to: %s", e.Title, strings.Join(e.Options, ", "))
}

// Kind enumerates lookup outcomes.
type Kind int

const (
	// KindFound carries a summary.
	KindFound Kind = iota
	// KindNotFound means the search returned no titles.
	KindNotFound
	// KindAmbiguous means the top title is a disambiguation page.
	KindAmbiguous
	// KindPageMissing means the top title does not resolve to a page.
	KindPageMissing
	// KindUnknown covers every other failure.
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindNotFound:
		return "not_found"
	case KindAmbiguous:
		return "ambiguous"
	case KindPageMissing:
		return "page_missing"
	default:
		return "unknown"
	}
}

// Result is the outcome of one lookup. Err is set only for KindUnknown.
type Result struct {
	Kind    Kind
	Title   string
	Summary string
	Options []string
	Err     error
}

// Message renders the user-facing text for r.
func (r Result) Message() string {
	switch r.Kind {
	case KindFound:
		return r.Summary
	case KindNotFound:
		return MsgNotFound
	case KindAmbiguous:
		return "Your query is ambiguous, did you mean: " + strings.Join(r.Options, ", ") + "?"
	case KindPageMissing:
		return MsgPageMissing
	default:
		return MsgUnknown
	}
}
