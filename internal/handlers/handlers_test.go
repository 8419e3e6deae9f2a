package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/patch"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

func TestRegisterAllDoesNotPanicAndCoversSuffixTable(t *testing.T) {
	reg := registry.New()
	d := NewDeps()
	d.Patch = patch.NewEngine()

	RegisterAll(reg, d)

	// Every tag documented in suffixHelp must resolve, under the kind the
	// classifier gives it (Suffix, IRRRegistry, Package or RPKI), to a
	// registered handler, proving RegisterAll's wiring matches the help
	// text it serves.
	for tag := range suffixHelp {
		input := "example-" + tag
		if tag == "RPKI" {
			input = "192.0.2.0/24-AS64496-RPKI"
		}
		q := classify.Classify(input, nil)
		if q.Kind == classify.KindRawDomain {
			t.Errorf("suffix tag %q has a help entry but the classifier does not recognize it", tag)
			continue
		}
		if _, ok := reg.Lookup(q); !ok {
			t.Errorf("suffix tag %q has a help entry but no registered handler", tag)
		}
	}

	for tag := range irrHosts {
		q := classify.Query{Kind: classify.KindIRRRegistry, Tag: tag, Payload: "AS4242420000"}
		if _, ok := reg.Lookup(q); !ok {
			t.Errorf("irr registry tag %q not registered", tag)
		}
	}

	for _, reg2 := range []string{"cargo", "npm", "pypi", "aur", "debian", "ubuntu", "nixos", "opensuse", "aosc", "epel", "alma", "openwrt", "modrinth", "curseforge"} {
		q := classify.Query{Kind: classify.KindPackage, Tag: reg2, Payload: "example"}
		if _, ok := reg.Lookup(q); !ok {
			t.Errorf("package registry %q not registered", reg2)
		}
	}

	for _, kind := range []classify.Kind{classify.KindRawDomain, classify.KindRawIPv4, classify.KindRawIPv6, classify.KindRawASN, classify.KindRawCIDR, classify.KindHelp, classify.KindUpdatePatch, classify.KindReloadPatch, classify.KindRPKI} {
		if _, ok := reg.Lookup(classify.Query{Kind: kind}); !ok {
			t.Errorf("kind %v not registered", kind)
		}
	}
}

func TestHelpLinesListEveryTag(t *testing.T) {
	out := renderHelp()
	for tag := range suffixHelp {
		if !strings.Contains(out, "-"+tag+":") {
			t.Errorf("help text missing tag %q", tag)
		}
	}
}

func TestDescHandlerKnownAndUnknownTag(t *testing.T) {
	reg := registry.New()
	d := NewDeps()
	d.Patch = patch.NewEngine()
	RegisterAll(reg, d)

	h, ok := reg.Lookup(classify.Query{Kind: classify.KindSuffix, Tag: "DESC"})
	if !ok {
		t.Fatal("DESC handler not registered")
	}

	out, err := h(context.Background(), classify.Query{Payload: "geo"})
	if err != nil || !strings.Contains(out, "IP geolocation") {
		t.Fatalf("expected GEO description, got %q (err=%v)", out, err)
	}

	out, err = h(context.Background(), classify.Query{Payload: "nope"})
	if err != nil || !strings.Contains(out, "Error") {
		t.Fatalf("expected error comment for unknown tag, got %q", out)
	}
}

func TestUpdatePatchAndReloadPatchWithoutConfigReportError(t *testing.T) {
	reg := registry.New()
	d := NewDeps()
	RegisterAll(reg, d)

	h, _ := reg.Lookup(classify.Query{Kind: classify.KindUpdatePatch})
	out, err := h(context.Background(), classify.Query{})
	if err != nil || !strings.Contains(out, "Error") {
		t.Fatalf("expected configuration error, got %q", out)
	}

	h, _ = reg.Lookup(classify.Query{Kind: classify.KindReloadPatch})
	out, err = h(context.Background(), classify.Query{})
	if err != nil || !strings.Contains(out, "Error") {
		t.Fatalf("expected configuration error, got %q", out)
	}
}

func TestReloadPatchSwapsEngineFromDir(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New()
	d := NewDeps()
	d.Patch = patch.NewEngine()
	d.PatchDir = dir
	RegisterAll(reg, d)

	h, _ := reg.Lookup(classify.Query{Kind: classify.KindReloadPatch})
	out, err := h(context.Background(), classify.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "reloaded 0 patch file(s)") {
		t.Fatalf("unexpected report: %q", out)
	}
}

func TestFetchJSONSuccessAndFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			w.Write([]byte(`{"name":"akaere"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	if err := fetchJSON(context.Background(), srv.Client(), srv.URL+"/ok", nil, &out); err != nil {
		t.Fatalf("fetchJSON: %v", err)
	}
	if out.Name != "akaere" {
		t.Fatalf("unexpected decode: %+v", out)
	}

	if err := fetchJSON(context.Background(), srv.Client(), srv.URL+"/missing", nil, &out); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestIsDigits(t *testing.T) {
	cases := map[string]bool{"123": true, "": false, "12a": false, "0": true}
	for in, want := range cases {
		if got := isDigits(in); got != want {
			t.Errorf("isDigits(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResolveToIPAcceptsLiteralAddress(t *testing.T) {
	got, err := resolveToIP(context.Background(), "192.0.2.1")
	if err != nil || got != "192.0.2.1" {
		t.Fatalf("resolveToIP literal: got %q, err %v", got, err)
	}
}

func TestRawHandlerDelegatesToWhoisClient(t *testing.T) {
	reg := registry.New()
	d := NewDeps()
	RegisterAll(reg, d)

	h, ok := reg.Lookup(classify.Query{Kind: classify.KindRawDomain})
	if !ok {
		t.Fatal("raw domain handler not registered")
	}
	out, err := h(context.Background(), classify.Query{Payload: "example.com"})
	if err != nil || !strings.Contains(out, "upstream client not configured") {
		t.Fatalf("expected not-configured comment, got %q (err=%v)", out, err)
	}
}

func TestIRRNamedRegistryWithoutClientReportsError(t *testing.T) {
	reg := registry.New()
	d := NewDeps()
	RegisterAll(reg, d)

	h, ok := reg.Lookup(classify.Query{Kind: classify.KindIRRRegistry, Tag: "RIPE"})
	if !ok {
		t.Fatal("RIPE handler not registered")
	}
	out, _ := h(context.Background(), classify.Query{Payload: "AS4242420000"})
	if !strings.Contains(out, "Error") {
		t.Fatalf("expected error comment, got %q", out)
	}
}

func TestNoPublicAPIPackageHandlersAreInformational(t *testing.T) {
	reg := registry.New()
	d := NewDeps()
	RegisterAll(reg, d)

	h, ok := reg.Lookup(classify.Query{Kind: classify.KindPackage, Tag: "debian"})
	if !ok {
		t.Fatal("debian handler not registered")
	}
	out, err := h(context.Background(), classify.Query{Payload: "curl"})
	if err != nil || !strings.Contains(out, "no stable unauthenticated JSON API") {
		t.Fatalf("unexpected output: %q (err=%v)", out, err)
	}
}

func TestLyricIsBareCommandWithoutPayload(t *testing.T) {
	reg := registry.New()
	d := NewDeps()
	RegisterAll(reg, d)

	h, ok := reg.Lookup(classify.Query{Kind: classify.KindSuffix, Tag: "LYRIC"})
	if !ok {
		t.Fatal("LYRIC handler not registered")
	}
	out, err := h(context.Background(), classify.Query{})
	if err != nil || !strings.Contains(out, "bare command") {
		t.Fatalf("unexpected output: %q (err=%v)", out, err)
	}
}
