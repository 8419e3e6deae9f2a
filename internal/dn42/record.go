// Package dn42 implements C4, the DN42 manager: it mirrors the DN42
// private-registry (git- or HTTP-backed), indexes it by identifier, ASN,
// and IP range, and renders RPSL records for DN42-flavored WHOIS queries.
//
// The "build a fresh index, then swap it in under one writer lock so a
// reader sees all-old or all-new, never partial" discipline (spec.md
// §4.4's refresh atomicity) is grounded on the teacher's
// system/tee/engine.go Start/Stop component lifecycle style (components
// initialized wholesale, guarded by a single RWMutex), narrowed here to
// one swappable field instead of a component graph.
package dn42

import "strings"

// Attr is one RPSL attribute: name (e.g. "aut-num", "descr", "mnt-by")
// paired with its value.
type Attr struct {
	Name  string
	Value string
}

// Record is one parsed RPSL object. Its primary identifier is the first
// attribute's (name, value) pair, per DN42/RPSL convention: an
// "aut-num: AS4242420000" object's type is "aut-num" and its key is
// "AS4242420000".
type Record struct {
	ObjectType string
	Key        string
	Attrs      []Attr
}

// Render re-emits the record in RPSL text form, attribute order preserved.
func (r *Record) Render() string {
	var b strings.Builder
	for _, a := range r.Attrs {
		b.WriteString(a.Name)
		b.WriteString(": ")
		b.WriteString(a.Value)
		b.WriteByte('\n')
	}
	return b.String()
}
