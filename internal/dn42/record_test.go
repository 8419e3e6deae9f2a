package dn42

import "testing"

func TestRecordRender(t *testing.T) {
	r := &Record{
		ObjectType: "aut-num",
		Key:        "AS4242420000",
		Attrs: []Attr{
			{Name: "aut-num", Value: "AS4242420000"},
			{Name: "as-name", Value: "DN42-EXAMPLE"},
		},
	}
	want := "aut-num: AS4242420000\nas-name: DN42-EXAMPLE\n"
	if got := r.Render(); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}
