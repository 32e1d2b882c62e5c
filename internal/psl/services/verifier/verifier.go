// Package verifier checks that public suffix list changes carry a DNS
// ownership proof referencing the pull request that makes them.
package verifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	logpkg "github.com/haukened/psl-verify/internal/psl/common/log"
	"github.com/haukened/psl-verify/internal/psl/domain"
)

// prURLPattern matches a proof TXT value: the pull request URL on the
// publicsuffix/list repository, optionally wrapped in literal quotes as
// some DNS providers store them.
var prURLPattern = regexp.MustCompile(`^"?https://github\.com/publicsuffix/list/pull/([0-9]+)"?$`)

const errResolverRequired = "proof resolver is required"

// Verifier runs ownership-proof checks over the rules changed between
// two versions of the public suffix list.
type Verifier struct {
	resolver ProofResolver
	cache    AnswerCache // nil disables caching
	logger   logpkg.Logger
	out      io.Writer
}

// Options defines configuration parameters for the verifier.
// Resolver is required; Cache, Logger and Out are optional.
type Options struct {
	Resolver ProofResolver
	Cache    AnswerCache
	Logger   logpkg.Logger
	Out      io.Writer
}

// New creates a verifier from the given options. The progress report
// defaults to stdout and logging defaults to the noop logger.
func New(opts Options) (*Verifier, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf(errResolverRequired)
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNoopLogger()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Verifier{
		resolver: opts.Resolver,
		cache:    opts.Cache,
		logger:   opts.Logger,
		out:      opts.Out,
	}, nil
}

// Report summarizes one verification run.
type Report struct {
	Removed int // removed rules checked
	Added   int // added rules checked
	Failed  int // rules whose proof check came back false
}

// OK reports whether every checked rule passed.
func (r Report) OK() bool {
	return r.Failed == 0
}

// Run diffs the two rule sets and checks the ownership proof for every
// removed rule, then every added rule. Unchanged rules are never
// checked; when nothing changed, no DNS query is issued.
//
// A returned error means the run could not complete (malformed rule or
// unclassified resolver failure) and carries no verdict.
func (v *Verifier) Run(ctx context.Context, before, after domain.RuleSet, prID int) (Report, error) {
	changes := before.Diff(after)
	v.logger.Debug(map[string]any{
		"removed": len(changes.Removed),
		"added":   len(changes.Added),
		"pr_id":   prID,
	}, "rule_diff_computed")

	var report Report

	fmt.Fprintln(v.out, "The following rules have been removed:")
	for _, rule := range changes.Removed {
		ok, err := v.CheckRule(ctx, rule, prID)
		if err != nil {
			return Report{}, err
		}
		report.Removed++
		if !ok {
			report.Failed++
		}
	}

	fmt.Fprintln(v.out, "The following rules have been added:")
	for _, rule := range changes.Added {
		ok, err := v.CheckRule(ctx, rule, prID)
		if err != nil {
			return Report{}, err
		}
		report.Added++
		if !ok {
			report.Failed++
		}
	}

	return report, nil
}

// CheckRule verifies the ownership proof for a single rule: it queries
// TXT records at the rule's verification name and looks for the pull
// request URL carrying prID. Progress is streamed to the report writer.
func (v *Verifier) CheckRule(ctx context.Context, rule domain.Rule, prID int) (bool, error) {
	fmt.Fprintf(v.out, "  Rule: %s\n", rule)

	name, err := rule.VerificationName()
	if err != nil {
		return false, err
	}
	fmt.Fprintf(v.out, "    Checking TXT entry for %s\n", name)

	answer, err := v.lookup(ctx, name)
	if err != nil {
		return false, err
	}

	switch answer.Status {
	case domain.ProofNoNameservers:
		fmt.Fprintf(v.out, "    No nameserver found for %s.\n", name)
		return false, nil
	case domain.ProofNXDomain:
		fmt.Fprintf(v.out, "    No _psl entry for %s.\n", rule)
		return false, nil
	case domain.ProofNoAnswer:
		fmt.Fprintf(v.out, "    No answer from nameserver for %s.\n", name)
		return false, nil
	}

	for _, txt := range answer.Records {
		m := prURLPattern.FindStringSubmatch(txt)
		if m == nil {
			continue
		}
		dnsPRID, err := strconv.Atoi(m[1])
		if err != nil {
			// digits beyond int range cannot equal any valid PR id, and a
			// matching value naming the wrong PR is a definitive failure
			fmt.Fprintf(v.out, "    DNS answer: %s -> PR %s\n", txt, m[1])
			fmt.Fprintf(v.out, "    DNS _psl entry incorrect expected PR %d != %s.\n", prID, m[1])
			return false, nil
		}
		fmt.Fprintf(v.out, "    DNS answer: %s -> PR %d\n", txt, dnsPRID)
		if dnsPRID == prID {
			return true, nil
		}
		// A proof naming a different PR is a definitive failure;
		// remaining TXT values are not consulted.
		fmt.Fprintf(v.out, "    DNS _psl entry incorrect expected PR %d != %d.\n", prID, dnsPRID)
		return false, nil
	}

	fmt.Fprintf(v.out, "    No DNS entry with pull request URL found.\n")
	return false, nil
}

// lookup queries the resolver through the answer cache when present.
func (v *Verifier) lookup(ctx context.Context, name string) (domain.ProofAnswer, error) {
	if v.cache != nil {
		if answer, ok := v.cache.Get(name); ok {
			v.logger.Debug(map[string]any{"name": name, "status": answer.Status.String()}, "proof_cache_hit")
			return answer, nil
		}
	}

	answer, err := v.resolver.LookupTXT(ctx, name)
	if err != nil {
		return domain.ProofAnswer{}, fmt.Errorf("lookup %s: %w", name, err)
	}
	v.logger.Debug(map[string]any{
		"name":    name,
		"status":  answer.Status.String(),
		"records": len(answer.Records),
	}, "proof_lookup_done")

	if v.cache != nil {
		v.cache.Set(name, answer)
	}
	return answer, nil
}
