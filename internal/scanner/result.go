package scanner

import "github.com/dirblast/dirblast/internal/wordlist"

// Result pairs a candidate with its probe outcome. Response is nil when
// Err is set. Wildcard, Accepted, and FilterReason are populated by the
// classification and filtering stages after the worker hands the result
// back.
type Result struct {
	Candidate    wordlist.Candidate
	Response     *Response
	Err          error
	Wildcard     bool
	Accepted     bool
	FilterReason string
}
