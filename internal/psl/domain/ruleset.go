package domain

import "slices"

// RuleSet is an unordered collection of unique rules. Membership is by
// exact string match; callers are expected to trim surrounding
// whitespace before insertion.
type RuleSet map[Rule]struct{}

// NewRuleSet returns a RuleSet containing the given rules.
func NewRuleSet(rules ...Rule) RuleSet {
	s := make(RuleSet, len(rules))
	for _, r := range rules {
		s.Add(r)
	}
	return s
}

// Add inserts a rule into the set. Duplicates collapse.
func (s RuleSet) Add(r Rule) {
	s[r] = struct{}{}
}

// Contains reports whether the rule is a member of the set.
func (s RuleSet) Contains(r Rule) bool {
	_, ok := s[r]
	return ok
}

// Len returns the number of rules in the set.
func (s RuleSet) Len() int {
	return len(s)
}

// Diff compares the receiver (the "before" state) against after and
// returns the rules removed (present before, absent after) and added
// (absent before, present after). Rules present in both sets are
// ignored entirely.
func (s RuleSet) Diff(after RuleSet) ChangeSet {
	var c ChangeSet
	for r := range s {
		if !after.Contains(r) {
			c.Removed = append(c.Removed, r)
		}
	}
	for r := range after {
		if !s.Contains(r) {
			c.Added = append(c.Added, r)
		}
	}
	slices.Sort(c.Removed)
	slices.Sort(c.Added)
	return c
}

// ChangeSet holds the symmetric difference between two rule sets.
// Both slices are sorted lexically so reports are deterministic.
type ChangeSet struct {
	Removed []Rule
	Added   []Rule
}

// Empty reports whether no rules changed.
func (c ChangeSet) Empty() bool {
	return len(c.Removed) == 0 && len(c.Added) == 0
}
