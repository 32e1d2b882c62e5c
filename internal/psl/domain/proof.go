package domain

import "fmt"

// ProofStatus classifies the outcome of a TXT lookup for a
// verification name. It is a closed set: every recoverable resolver
// failure mode maps to one of the non-Answered statuses, and anything
// the resolver cannot classify is surfaced as an error instead.
type ProofStatus uint8

const (
	// ProofAnswered means the query succeeded and returned at least one TXT value.
	ProofAnswered ProofStatus = iota
	// ProofNoNameservers means no nameserver produced a usable response
	// (SERVFAIL, REFUSED, or similar from every server).
	ProofNoNameservers
	// ProofNXDomain means the verification name does not exist.
	ProofNXDomain
	// ProofNoAnswer means the query succeeded but returned no TXT records.
	ProofNoAnswer
)

// String returns a stable string representation of the status.
func (s ProofStatus) String() string {
	switch s {
	case ProofAnswered:
		return "answered"
	case ProofNoNameservers:
		return "no-nameservers"
	case ProofNXDomain:
		return "nxdomain"
	case ProofNoAnswer:
		return "no-answer"
	default:
		return fmt.Sprintf("ProofStatus(%d)", s)
	}
}

// ProofAnswer is the tagged result of one TXT lookup. Records is only
// populated when Status is ProofAnswered, in the order the resolver
// returned them.
type ProofAnswer struct {
	Status  ProofStatus
	Records []string
}
