package dnsproof

import (
	"context"

	"github.com/haukened/psl-verify/internal/psl/domain"
	"github.com/haukened/psl-verify/internal/psl/services/verifier"
)

// MockResolver is a ProofResolver used for testing. Answers maps
// verification names to scripted answers; Errs maps names to errors
// injected as unclassified resolver failures. Names absent from both
// maps answer NXDOMAIN. Calls records every looked-up name in order.
type MockResolver struct {
	Answers map[string]domain.ProofAnswer
	Errs    map[string]error
	Calls   []string
}

// LookupTXT returns the scripted answer for name.
func (m *MockResolver) LookupTXT(ctx context.Context, name string) (domain.ProofAnswer, error) {
	m.Calls = append(m.Calls, name)

	if err := ctx.Err(); err != nil {
		return domain.ProofAnswer{}, err
	}
	if err, ok := m.Errs[name]; ok {
		return domain.ProofAnswer{}, err
	}
	if answer, ok := m.Answers[name]; ok {
		return answer, nil
	}
	return domain.ProofAnswer{Status: domain.ProofNXDomain}, nil
}

var _ verifier.ProofResolver = (*MockResolver)(nil)
