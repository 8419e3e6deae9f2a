package patch

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const ruleSeparator = "---"

var ordinalPattern = regexp.MustCompile(`^(\d{3})-`)

// ParseOrdinal extracts a file's ordinal from its leading three-digit
// prefix (e.g. "020-geo-fixups" -> 20). Files without the prefix are
// rejected per spec.md §4.2.
func ParseOrdinal(name string) (int, error) {
	m := ordinalPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("patch: file name %q has no leading NNN- ordinal", name)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("patch: file name %q has malformed ordinal: %w", name, err)
	}
	return n, nil
}

// ParseFile parses one patch bundle file's body into a RuleFile. name
// supplies the ordinal, is kept as RuleFile.Name, and appears in error
// messages.
func ParseFile(name string, body []byte) (*RuleFile, error) {
	ordinal, err := ParseOrdinal(name)
	if err != nil {
		return nil, err
	}

	var (
		fileExclude []string
		fileContext []ContextRule
		rules       []Rule
		cur         *pendingRule
	)

	flush := func() error {
		if cur == nil {
			return nil
		}
		r, err := cur.build(fileExclude, fileContext)
		if err != nil {
			return err
		}
		rules = append(rules, r)
		cur = nil
		return nil
	}

	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == ruleSeparator {
			if err := flush(); err != nil {
				return nil, fmt.Errorf("patch: %s:%d: %w", name, lineNo, err)
			}
			cur = &pendingRule{}
			continue
		}

		directive, value, ok := splitDirective(line)
		if !ok {
			return nil, fmt.Errorf("patch: %s:%d: unrecognized directive %q", name, lineNo, line)
		}

		switch directive {
		case "EXCLUDE":
			fileExclude = append(fileExclude, value)
		case "SKIP_BEFORE", "SKIP_AFTER", "ONLY_BEFORE", "ONLY_AFTER":
			cr, err := parseContextRule(directive, value)
			if err != nil {
				return nil, fmt.Errorf("patch: %s:%d: %w", name, lineNo, err)
			}
			fileContext = append(fileContext, cr)
		case "CONDITION":
			if cur == nil {
				cur = &pendingRule{}
			}
			cond, err := parseCondition(value)
			if err != nil {
				return nil, fmt.Errorf("patch: %s:%d: %w", name, lineNo, err)
			}
			cur.condition = cond
		case "MATCH_TYPE":
			if cur == nil {
				cur = &pendingRule{}
			}
			mm, err := parseMatchMode(value)
			if err != nil {
				return nil, fmt.Errorf("patch: %s:%d: %w", name, lineNo, err)
			}
			cur.matchMode = mm
		case "SEARCH":
			if cur == nil {
				cur = &pendingRule{}
			}
			cur.search = value
			cur.hasSearch = true
		case "REPLACE":
			if cur == nil {
				cur = &pendingRule{}
			}
			cur.replace = value
			cur.hasReplace = true
		default:
			return nil, fmt.Errorf("patch: %s:%d: unknown directive %q", name, lineNo, directive)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("patch: %s: scan: %w", name, err)
	}
	if err := flush(); err != nil {
		return nil, fmt.Errorf("patch: %s: %w", name, err)
	}

	return &RuleFile{Name: name, Ordinal: ordinal, Rules: rules}, nil
}

// pendingRule accumulates directives between two "---" separators before
// being finalized into a Rule.
type pendingRule struct {
	condition            Condition
	matchMode            MatchMode
	search, replace       string
	hasSearch, hasReplace bool
}

func (p *pendingRule) build(fileExclude []string, fileContext []ContextRule) (Rule, error) {
	if !p.hasSearch {
		return Rule{}, fmt.Errorf("rule missing SEARCH directive")
	}
	if !p.hasReplace {
		return Rule{}, fmt.Errorf("rule missing REPLACE directive")
	}
	r := Rule{
		Condition: p.condition,
		MatchMode: p.matchMode,
		Search:    p.search,
		Replace:   p.replace,
		Exclude:   append([]string(nil), fileExclude...),
		Context:   append([]ContextRule(nil), fileContext...),
	}
	if r.MatchMode == MatchRegex {
		re, err := regexp.Compile(r.Search)
		if err != nil {
			return Rule{}, fmt.Errorf("compile regex %q: %w", r.Search, err)
		}
		r.compiled = re
	}
	return r, nil
}

func splitDirective(line string) (directive, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func parseMatchMode(value string) (MatchMode, error) {
	switch strings.ToUpper(value) {
	case "EXACT":
		return MatchExact, nil
	case "ICASE":
		return MatchICase, nil
	case "REGEX":
		return MatchRegex, nil
	default:
		return 0, fmt.Errorf("unknown MATCH_TYPE %q", value)
	}
}

func parseCondition(value string) (Condition, error) {
	if strings.EqualFold(value, "always") {
		return Condition{Kind: ConditionAlways}, nil
	}
	kind, pattern, ok := strings.Cut(value, ":")
	if !ok {
		return Condition{}, fmt.Errorf("malformed CONDITION %q", value)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "query-contains":
		return Condition{Kind: ConditionQueryContains, Pattern: pattern}, nil
	case "query-contains-icase":
		return Condition{Kind: ConditionQueryContainsICase, Pattern: pattern}, nil
	case "response-contains":
		return Condition{Kind: ConditionResponseContains, Pattern: pattern}, nil
	case "response-contains-icase":
		return Condition{Kind: ConditionResponseContainsICase, Pattern: pattern}, nil
	default:
		return Condition{}, fmt.Errorf("unknown CONDITION kind %q", kind)
	}
}

func parseContextRule(directive, value string) (ContextRule, error) {
	pattern, nStr, ok := strings.Cut(value, ",")
	if !ok {
		return ContextRule{}, fmt.Errorf("malformed %s %q (want pattern,N)", directive, value)
	}
	n, err := strconv.Atoi(strings.TrimSpace(nStr))
	if err != nil {
		return ContextRule{}, fmt.Errorf("malformed %s line count %q: %w", directive, nStr, err)
	}
	var kind ContextRuleKind
	switch directive {
	case "SKIP_BEFORE":
		kind = SkipBefore
	case "SKIP_AFTER":
		kind = SkipAfter
	case "ONLY_BEFORE":
		kind = OnlyBefore
	case "ONLY_AFTER":
		kind = OnlyAfter
	}
	return ContextRule{Kind: kind, Pattern: strings.TrimSpace(pattern), N: n}, nil
}
