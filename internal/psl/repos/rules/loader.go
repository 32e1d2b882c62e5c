// Package rules loads public-suffix-list rule files into rule sets.
package rules

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	logpkg "github.com/haukened/psl-verify/internal/psl/common/log"
	"github.com/haukened/psl-verify/internal/psl/domain"
)

// Load reads the rule file at path into a RuleSet. The file is opened
// once; open and read errors propagate to the caller.
func Load(path string, logger logpkg.Logger) (domain.RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()

	set, err := Parse(f, logger)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}
	return set, nil
}

// Parse reads a line-oriented rule list into a RuleSet.
//
// Behavior:
// - Trims surrounding whitespace and removes a BOM at the start of the first line
// - Skips empty lines and whole-line "//" comments
// - Every other line is taken verbatim as one rule
// - Duplicates collapse
func Parse(r io.Reader, logger logpkg.Logger) (domain.RuleSet, error) {
	set := domain.NewRuleSet()
	scanner := bufio.NewScanner(r)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "//") {
			logger.Debug(map[string]any{"line": lineNum}, "skip_comment")
			continue
		}

		rule := domain.Rule(line)
		if set.Contains(rule) {
			logger.Debug(map[string]any{"line": lineNum, "rule": line}, "skip_duplicate")
			continue
		}
		set.Add(rule)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	logger.Debug(map[string]any{"rules": set.Len()}, "rule_set_loaded")
	return set, nil
}
