// Package patch implements C2, the patch engine: parsing, storing, and
// applying remotely-updatable rewrite rules against WHOIS response bodies.
//
// The rule/file/engine split and the "parse once, apply as an immutable
// snapshot swapped under one lock" discipline are grounded on the teacher's
// system/tee script engine family (engine.go holding a RWMutex-guarded
// snapshot that request goroutines borrow, never mutate) narrowed from a
// script-execution engine to a pure-data rewrite-rule engine.
package patch

import "regexp"

// MatchMode selects how a rule's search pattern is matched against a line
// or whole response body.
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchICase
	MatchRegex
)

func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "EXACT"
	case MatchICase:
		return "ICASE"
	case MatchRegex:
		return "REGEX"
	default:
		return "UNKNOWN"
	}
}

// ConditionKind selects when a rule is eligible to run at all.
type ConditionKind int

const (
	ConditionAlways ConditionKind = iota
	ConditionQueryContains
	ConditionQueryContainsICase
	ConditionResponseContains
	ConditionResponseContainsICase
)

// Condition gates whether a rule applies to a given (query, response) pair.
type Condition struct {
	Kind    ConditionKind
	Pattern string
}

// Eval reports whether the condition holds for the given query and the
// response text accumulated so far.
func (c Condition) Eval(query, response string) bool {
	switch c.Kind {
	case ConditionAlways:
		return true
	case ConditionQueryContains:
		return containsExact(query, c.Pattern)
	case ConditionQueryContainsICase:
		return containsICase(query, c.Pattern)
	case ConditionResponseContains:
		return containsExact(response, c.Pattern)
	case ConditionResponseContainsICase:
		return containsICase(response, c.Pattern)
	default:
		return false
	}
}

// ContextRuleKind selects how a context rule constrains a line relative to
// its neighbors.
type ContextRuleKind int

const (
	SkipBefore ContextRuleKind = iota
	SkipAfter
	OnlyBefore
	OnlyAfter
)

// ContextRule requires (or forbids) a pattern within N lines before/after
// the line under consideration. Lines are compared with ANSI escapes
// stripped, per spec.md §4.2.
type ContextRule struct {
	Kind    ContextRuleKind
	Pattern string
	N       int
}

// Rule is one parsed rewrite rule. Exclude and Context are copies of the
// file-scoped EXCLUDE and context directives seen so far when the rule is
// closed (at the next "---" or the end of the file); a rule has no
// exclude/context lists of its own.
type Rule struct {
	Condition Condition
	MatchMode MatchMode
	Search    string
	Replace   string
	Exclude   []string
	Context   []ContextRule

	compiled *regexp.Regexp // non-nil only when MatchMode == MatchRegex
}

// RuleFile is one parsed patch bundle file: an ordinal-ordered list of
// rules, all applied in declaration order.
type RuleFile struct {
	Name    string
	Ordinal int
	Rules   []Rule
}

// BundleMeta is the index metadata for one remotely-fetched patch, per
// spec.md §3 and §6's patch index format.
type BundleMeta struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	SHA1        string `json:"sha1"`
	Size        int    `json:"size"`
	Enabled     bool   `json:"enabled"`
	Priority    int    `json:"priority"`
	Modified    string `json:"modified"`
	Description string `json:"description"`
}

// Index is the remote patch index document, per spec.md §6.
type Index struct {
	Version     string       `json:"version"`
	LastUpdated string       `json:"last_updated"`
	Patches     []BundleMeta `json:"patches"`
}
