package patch

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Engine holds the active, ordinal-sorted rule set and applies it to
// response bodies. The rule slice is replaced wholesale under a single
// writer lock (Swap); Apply takes a lock-free snapshot reference for the
// duration of one call, so a concurrent reload never hands a reader a
// partially-updated rule list.
type Engine struct {
	mu    sync.RWMutex
	files []*RuleFile
}

// NewEngine returns an Engine with an empty rule set.
func NewEngine() *Engine {
	return &Engine{}
}

// Swap installs files as the new active rule set, sorted by ordinal.
// Ties keep the input's relative order (stable sort).
func (e *Engine) Swap(files []*RuleFile) {
	sorted := append([]*RuleFile(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })

	e.mu.Lock()
	e.files = sorted
	e.mu.Unlock()
}

// Files returns the currently active rule files, in application order.
func (e *Engine) Files() []*RuleFile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.files
}

// Apply runs every active rule, in ordinal/declaration order, against
// response. Replacements are cumulative: a later rule sees the output of
// every earlier one. A response is returned byte-for-byte unchanged when
// the rule set is empty (patch idempotence on no-op, spec.md §8).
func (e *Engine) Apply(query, response string) string {
	e.mu.RLock()
	files := e.files
	e.mu.RUnlock()

	for _, f := range files {
		for _, r := range f.Rules {
			if !r.Condition.Eval(query, response) {
				continue
			}
			if len(r.Exclude) > 0 || len(r.Context) > 0 {
				response = applyLineWise(r, response)
			} else {
				response = doReplace(response, r)
			}
		}
	}
	return response
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

func containsExact(haystack, pattern string) bool {
	return strings.Contains(haystack, pattern)
}

func containsICase(haystack, pattern string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(pattern))
}

// lineMatches reports whether line is a candidate for rule's replacement,
// per its match mode.
func lineMatches(r Rule, line string) bool {
	switch r.MatchMode {
	case MatchRegex:
		return r.compiled.MatchString(line)
	case MatchICase:
		return containsICase(line, r.Search)
	default:
		return containsExact(line, r.Search)
	}
}

// doReplace performs rule's substitution against text, whole-string.
func doReplace(text string, r Rule) string {
	switch r.MatchMode {
	case MatchRegex:
		return r.compiled.ReplaceAllString(text, r.Replace)
	case MatchICase:
		return replaceAllICase(text, r.Search, r.Replace)
	default:
		return strings.ReplaceAll(text, r.Search, r.Replace)
	}
}

func replaceAllICase(text, search, replace string) string {
	if search == "" {
		return text
	}
	lowerText := strings.ToLower(text)
	lowerSearch := strings.ToLower(search)
	var b strings.Builder
	for {
		idx := strings.Index(lowerText, lowerSearch)
		if idx < 0 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:idx])
		b.WriteString(replace)
		text = text[idx+len(search):]
		lowerText = lowerText[idx+len(search):]
	}
	return b.String()
}

func matchesAnyExclude(exclude []string, strippedLine string) bool {
	for _, pat := range exclude {
		if strings.Contains(strippedLine, pat) {
			return true
		}
	}
	return false
}

// contextPass evaluates rule's context rules against the ±N lines around
// idx in strippedLines (already ANSI-stripped). All rules must pass.
func contextPass(context []ContextRule, strippedLines []string, idx int) bool {
	for _, cr := range context {
		if !contextRulePasses(cr, strippedLines, idx) {
			return false
		}
	}
	return true
}

func contextRulePasses(cr ContextRule, lines []string, idx int) bool {
	var lo, hi int
	switch cr.Kind {
	case SkipBefore, OnlyBefore:
		lo, hi = idx-cr.N, idx-1
	case SkipAfter, OnlyAfter:
		lo, hi = idx+1, idx+cr.N
	}
	if lo < 0 {
		lo = 0
	}
	if hi > len(lines)-1 {
		hi = len(lines) - 1
	}

	found := false
	for i := lo; i <= hi; i++ {
		if i < 0 || i >= len(lines) {
			continue
		}
		if strings.Contains(lines[i], cr.Pattern) {
			found = true
			break
		}
	}

	switch cr.Kind {
	case SkipBefore, SkipAfter:
		return !found
	case OnlyBefore, OnlyAfter:
		return found
	default:
		return true
	}
}

// applyLineWise runs rule against response one line at a time, honoring
// exclude patterns and context rules, per spec.md §4.2(b).
func applyLineWise(r Rule, response string) string {
	lines := strings.Split(response, "\n")
	stripped := make([]string, len(lines))
	for i, l := range lines {
		stripped[i] = stripANSI(l)
	}

	for i, line := range lines {
		if !lineMatches(r, line) {
			continue
		}
		if matchesAnyExclude(r.Exclude, stripped[i]) {
			continue
		}
		if !contextPass(r.Context, stripped, i) {
			continue
		}
		lines[i] = doReplace(line, r)
	}
	return strings.Join(lines, "\n")
}
