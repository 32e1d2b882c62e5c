package domain

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// ErrMalformedRule indicates a rule that still carries wildcard or
// exception markers after prefix stripping. Callers treat this as a
// fatal input error, never as a failed verification.
var ErrMalformedRule = errors.New("malformed public suffix rule")

// Rule is a single public-suffix-list entry, exactly as it appears in
// the list file. It may carry a leading "*." (wildcard) or "!"
// (exception) marker. No deeper structure is parsed.
type Rule string

// IsWildcard reports whether the rule starts with the "*." marker.
func (r Rule) IsWildcard() bool {
	return strings.HasPrefix(string(r), "*.")
}

// IsException reports whether the rule starts with the "!" marker.
func (r Rule) IsException() bool {
	return strings.HasPrefix(string(r), "!")
}

// FQDN strips the wildcard and exception markers, in that order, and
// returns the plain domain name the rule applies to. A rule that still
// contains '*' or '!' after stripping is malformed and yields
// ErrMalformedRule. Rules without markers are returned unchanged.
func (r Rule) FQDN() (string, error) {
	name := string(r)
	name = strings.TrimPrefix(name, "*.")
	name = strings.TrimPrefix(name, "!")

	if strings.ContainsAny(name, "!*") {
		return "", fmt.Errorf("%w: %q", ErrMalformedRule, string(r))
	}
	return name, nil
}

// VerificationName derives the DNS name whose TXT record carries the
// ownership proof for this rule: "_psl." prepended to the canonical
// A-label (punycode) form of the rule's domain.
func (r Rule) VerificationName() (string, error) {
	name, err := r.FQDN()
	if err != nil {
		return "", err
	}

	ascii, err := idna.Lookup.ToASCII(canonicalName(name))
	if err != nil {
		return "", fmt.Errorf("rule %q is not a valid DNS name: %w", string(r), err)
	}
	return "_psl." + ascii, nil
}

// canonicalName lowercases a domain name, trims surrounding whitespace,
// and removes any trailing dots.
func canonicalName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}
