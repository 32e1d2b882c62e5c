package verifier

import (
	"context"

	"github.com/haukened/psl-verify/internal/psl/domain"
)

// ProofResolver performs TXT lookups for verification names. Expected
// resolver failure modes (no nameservers, NXDOMAIN, empty answer) are
// reported through the ProofAnswer status; only unclassified failures
// are returned as errors, and those abort the run.
type ProofResolver interface {
	LookupTXT(ctx context.Context, name string) (domain.ProofAnswer, error)
}

// AnswerCache stores TXT answers keyed by verification name for the
// duration of one run, so rules that normalize to the same name issue
// only one query.
type AnswerCache interface {
	Get(name string) (domain.ProofAnswer, bool)
	Set(name string, answer domain.ProofAnswer)
}
