package patch

import "testing"

func mustParse(t *testing.T, name string, body string) *RuleFile {
	t.Helper()
	rf, err := ParseFile(name, []byte(body))
	if err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	return rf
}

func TestApplyNoOpIsIdentity(t *testing.T) {
	e := NewEngine()
	in := "the quick brown fox\njumps over\n"
	out := e.Apply("query", in)
	if out != in {
		t.Fatalf("expected identity on empty rule set, got %q", out)
	}
}

func TestApplyWholeStringExact(t *testing.T) {
	e := NewEngine()
	rf := mustParse(t, "010-sub", `
---
CONDITION: always
MATCH_TYPE: EXACT
SEARCH: fox
REPLACE: dog
`)
	e.Swap([]*RuleFile{rf})
	out := e.Apply("q", "the quick brown fox")
	if out != "the quick brown dog" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestApplyWholeStringICase(t *testing.T) {
	e := NewEngine()
	rf := mustParse(t, "010-sub", `
---
CONDITION: always
MATCH_TYPE: ICASE
SEARCH: Fox
REPLACE: dog
`)
	e.Swap([]*RuleFile{rf})
	out := e.Apply("q", "the quick brown FOX jumped")
	if out != "the quick brown dog jumped" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestApplyRegex(t *testing.T) {
	e := NewEngine()
	rf := mustParse(t, "010-sub", `
---
CONDITION: always
MATCH_TYPE: REGEX
SEARCH: [0-9]+
REPLACE: N
`)
	e.Swap([]*RuleFile{rf})
	out := e.Apply("q", "port 8080 open, port 22 open")
	if out != "port N open, port N open" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestApplyCumulative(t *testing.T) {
	e := NewEngine()
	rf1 := mustParse(t, "001-a", `
---
CONDITION: always
MATCH_TYPE: EXACT
SEARCH: a
REPLACE: b
`)
	rf2 := mustParse(t, "002-b", `
---
CONDITION: always
MATCH_TYPE: EXACT
SEARCH: b
REPLACE: c
`)
	e.Swap([]*RuleFile{rf2, rf1})
	out := e.Apply("q", "a")
	if out != "c" {
		t.Fatalf("expected cumulative a->b->c, got %q", out)
	}
}

func TestApplyOrdinalOrderIndependentOfSwapOrder(t *testing.T) {
	e := NewEngine()
	rf10 := mustParse(t, "010-second", `
---
CONDITION: always
MATCH_TYPE: EXACT
SEARCH: x
REPLACE: y
`)
	rf1 := mustParse(t, "001-first", `
---
CONDITION: always
MATCH_TYPE: EXACT
SEARCH: start
REPLACE: x
`)
	e.Swap([]*RuleFile{rf10, rf1})
	out := e.Apply("q", "start")
	if out != "y" {
		t.Fatalf("expected ordinal ordering start->x->y, got %q", out)
	}
}

func TestApplyConditionQueryContains(t *testing.T) {
	e := NewEngine()
	rf := mustParse(t, "001-cond", `
---
CONDITION: query-contains:special
MATCH_TYPE: EXACT
SEARCH: foo
REPLACE: bar
`)
	e.Swap([]*RuleFile{rf})

	out := e.Apply("special-query", "foo")
	if out != "bar" {
		t.Fatalf("expected rule to apply when condition matches, got %q", out)
	}
	out2 := e.Apply("plain-query", "foo")
	if out2 != "foo" {
		t.Fatalf("expected rule to be skipped when condition doesn't match, got %q", out2)
	}
}

func TestApplyExcludeBlocksLine(t *testing.T) {
	e := NewEngine()
	rf := mustParse(t, "001-excl", `
EXCLUDE: KEEP
---
CONDITION: always
MATCH_TYPE: EXACT
SEARCH: secret
REPLACE: REDACTED
`)
	e.Swap([]*RuleFile{rf})

	in := "line one secret\nline two secret KEEP\n"
	out := e.Apply("q", in)
	want := "line one REDACTED\nline two secret KEEP\n"
	if out != want {
		t.Fatalf("expected excluded line preserved, got %q want %q", out, want)
	}
}

func TestApplySkipBeforeContext(t *testing.T) {
	e := NewEngine()
	rf := mustParse(t, "001-ctx", `
SKIP_BEFORE: banner,1
---
CONDITION: always
MATCH_TYPE: EXACT
SEARCH: value
REPLACE: REDACTED
`)
	e.Swap([]*RuleFile{rf})

	in := "banner line\nvalue here\nvalue there\n"
	out := e.Apply("q", in)
	want := "banner line\nvalue here\nREDACTED there\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestApplyOnlyAfterContext(t *testing.T) {
	e := NewEngine()
	rf := mustParse(t, "001-ctx2", `
ONLY_AFTER: trailer,1
---
CONDITION: always
MATCH_TYPE: EXACT
SEARCH: value
REPLACE: REDACTED
`)
	e.Swap([]*RuleFile{rf})

	in := "value no trailer\nvalue yes\ntrailer\n"
	out := e.Apply("q", in)
	want := "value no trailer\nREDACTED yes\ntrailer\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestStripANSI(t *testing.T) {
	colored := "\x1b[31mred\x1b[0m text"
	if got := stripANSI(colored); got != "red text" {
		t.Fatalf("expected ANSI stripped, got %q", got)
	}
}
