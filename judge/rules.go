package judge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/parleylabs/gauntlet/config"
	"github.com/parleylabs/gauntlet/driver"
)

// EvaluateRules scores a rule-type test deterministically: every include
// must appear in the agent's output, every exclude must be absent, and
// every pattern must match. Matching is case-insensitive for plain strings
// and exact for regular expressions.
func EvaluateRules(tc *config.TestCase, transcript []driver.Turn) []MetricResult {
	text := agentText(transcript)
	lower := strings.ToLower(text)

	results := make([]MetricResult, 0, len(tc.Includes)+len(tc.Excludes)+len(tc.Patterns))

	for _, s := range tc.Includes {
		found := strings.Contains(lower, strings.ToLower(s))
		results = append(results, ruleResult("includes:"+s, found,
			fmt.Sprintf("agent output must contain %q", s)))
	}
	for _, s := range tc.Excludes {
		absent := !strings.Contains(lower, strings.ToLower(s))
		results = append(results, ruleResult("excludes:"+s, absent,
			fmt.Sprintf("agent output must not contain %q", s)))
	}
	for _, p := range tc.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			// Patterns are validated at load time; an invalid one here is a
			// programming error and fails the rule.
			results = append(results, MetricResult{
				Name:      "pattern:" + p,
				Passed:    false,
				Threshold: 1,
				Reasoning: fmt.Sprintf("invalid pattern: %v", err),
			})
			continue
		}
		results = append(results, ruleResult("pattern:"+p, re.MatchString(text),
			fmt.Sprintf("agent output must match %q", p)))
	}
	return results
}

func ruleResult(name string, passed bool, rule string) MetricResult {
	r := MetricResult{Name: name, Passed: passed, Threshold: 1}
	if passed {
		r.Score = 1
		r.Reasoning = "satisfied: " + rule
	} else {
		r.Reasoning = "violated: " + rule
	}
	return r
}

// agentText concatenates the agent's messages. Rules check what the agent
// said, not what the simulated user or mocked tools produced.
func agentText(transcript []driver.Turn) string {
	var b strings.Builder
	for _, t := range transcript {
		if t.Role == driver.RoleAgent && t.Content != "" {
			b.WriteString(t.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}
