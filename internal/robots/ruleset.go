package robots

import (
	"strings"
)

// RuleSet is the parsed access policy of one robots.txt document.
// It is immutable; accessors return copies. The zero RuleSet has no groups
// and allows everything.
type RuleSet struct {
	groups map[string][]Rule
	agents []string
}

// Verdict is the outcome of evaluating one path for one agent.
type Verdict struct {
	Allowed bool

	// Group is the agent token whose rules applied; empty when no group did.
	Group string

	// Matched reports whether any rule matched; Rule is only set then.
	Matched bool
	Rule    Rule
}

// AllowAll is the policy installed when robots.txt is missing or unusable.
func AllowAll() RuleSet {
	return RuleSet{}
}

// NewRuleSet builds a RuleSet from agent groups. Agent tokens are reduced to
// their product token and patterns are normalized; rules with empty
// patterns are dropped.
func NewRuleSet(groups map[string][]Rule, order []string) RuleSet {
	b := newRuleSetBuilder()
	seen := make(map[string]bool, len(groups))
	add := func(agent string) {
		b.openGroup(agent)
		for _, rule := range groups[agent] {
			b.addRule(rule.Directive, rule.Pattern)
		}
		b.closeGroup()
	}
	for _, agent := range order {
		if _, ok := groups[agent]; ok && !seen[agent] {
			seen[agent] = true
			add(agent)
		}
	}
	for agent := range groups {
		if !seen[agent] {
			seen[agent] = true
			add(agent)
		}
	}
	return b.build()
}

func (r RuleSet) IsEmpty() bool {
	return len(r.groups) == 0
}

// Agents returns the group tokens in order of first appearance.
func (r RuleSet) Agents() []string {
	return append([]string(nil), r.agents...)
}

// Rules returns a copy of the rules of the group token, in document order.
func (r RuleSet) Rules(agentToken string) []Rule {
	return append([]Rule(nil), r.groups[agentToken]...)
}

// Evaluate applies longest-match precedence.
func (r RuleSet) Evaluate(agent, path string) Verdict {
	return r.EvaluateWith(LongestMatch, agent, path)
}

// EvaluateWith decides whether agent may fetch path, the request path
// including any query. Raw and percent-escaped paths are both accepted.
func (r RuleSet) EvaluateWith(precedence Precedence, agent, path string) Verdict {
	group, ok := selectGroup(r.groups, agent)
	if !ok {
		return Verdict{Allowed: true}
	}
	rules := r.groups[group]
	path = escapePath(path)

	var best Rule
	matched := false
	for _, rule := range rules {
		if !matchPattern(rule.Pattern, path) {
			continue
		}
		if precedence == FirstMatch {
			best, matched = rule, true
			break
		}
		if !matched || outranks(rule, best) {
			best, matched = rule, true
		}
	}

	if !matched {
		return Verdict{Allowed: true, Group: group}
	}
	return Verdict{
		Allowed: best.Directive == Allow,
		Group:   group,
		Matched: true,
		Rule:    best,
	}
}

// outranks reports whether candidate beats current under longest-match.
func outranks(candidate, current Rule) bool {
	if len(candidate.Pattern) != len(current.Pattern) {
		return len(candidate.Pattern) > len(current.Pattern)
	}
	return candidate.Directive == Allow && current.Directive == Disallow
}

// String serializes the RuleSet back to robots.txt text. Parsing the output
// yields an equivalent RuleSet.
func (r RuleSet) String() string {
	var sb strings.Builder
	for i, agent := range r.agents {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("User-agent: ")
		sb.WriteString(agent)
		sb.WriteString("\n")

		rules := r.groups[agent]
		if len(rules) == 0 {
			// an empty Disallow closes the group without adding a rule
			sb.WriteString("Disallow:\n")
			continue
		}
		for _, rule := range rules {
			sb.WriteString(rule.String())
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Equal reports whether both sets hold the same groups with the same rules
// in the same order.
func (r RuleSet) Equal(other RuleSet) bool {
	if len(r.groups) != len(other.groups) {
		return false
	}
	for agent, rules := range r.groups {
		otherRules, ok := other.groups[agent]
		if !ok || len(rules) != len(otherRules) {
			return false
		}
		for i := range rules {
			if rules[i] != otherRules[i] {
				return false
			}
		}
	}
	return true
}

// ruleSetBuilder accumulates groups the way the parser reads them: every
// rule applies to all agents of the currently open group.
type ruleSetBuilder struct {
	groups  map[string][]Rule
	agents  []string
	current []string
	closed  bool
}

func newRuleSetBuilder() *ruleSetBuilder {
	return &ruleSetBuilder{groups: make(map[string][]Rule)}
}

// openGroup adds agent to the open group, or starts a new group when the
// open one already received a directive.
func (b *ruleSetBuilder) openGroup(agent string) {
	token := ProductToken(agent)
	if token == "" {
		token = wildcardAgent
	}
	if b.closed {
		b.current = nil
		b.closed = false
	}
	if _, ok := b.groups[token]; !ok {
		b.groups[token] = nil
		b.agents = append(b.agents, token)
	}
	for _, existing := range b.current {
		if existing == token {
			return
		}
	}
	b.current = append(b.current, token)
}

func (b *ruleSetBuilder) hasOpenGroup() bool {
	return len(b.current) > 0
}

// closeGroup marks the open group as having seen a directive.
func (b *ruleSetBuilder) closeGroup() {
	b.closed = true
}

// addRule appends to every agent of the open group. Empty patterns only
// close the group.
func (b *ruleSetBuilder) addRule(directive Directive, value string) {
	b.closeGroup()
	pattern := normalizePattern(value)
	if pattern == "" {
		return
	}
	rule := Rule{Directive: directive, Pattern: pattern}
	for _, agent := range b.current {
		b.groups[agent] = append(b.groups[agent], rule)
	}
}

func (b *ruleSetBuilder) build() RuleSet {
	if len(b.groups) == 0 {
		return RuleSet{}
	}
	return RuleSet{groups: b.groups, agents: b.agents}
}
