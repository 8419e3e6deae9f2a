package plugin

import (
	"context"
	"testing"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

func TestManagerLoadAndRegister(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "weather", `
name: weather
suffix: "-WEATHER"
enabled: true
timeout_seconds: 2
`, `function handle_query(p) { return "sunny:" + p; }`, "")

	store := testStore(t)
	mgr, err := Load(root, testLogger(), store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(mgr.Suffixes()) != 1 || mgr.Suffixes()[0] != "WEATHER" {
		t.Fatalf("unexpected suffixes: %v", mgr.Suffixes())
	}

	reg := registry.New()
	mgr.RegisterInto(reg)

	h, ok := reg.Lookup(classify.Query{Kind: classify.KindPlugin, Tag: "WEATHER", Payload: "city"})
	if !ok {
		t.Fatalf("expected plugin to be registered")
	}
	out, err := h(context.Background(), classify.Query{Payload: "city"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if out != "sunny:city" {
		t.Fatalf("unexpected output: %q", out)
	}

	mgr.Shutdown()
}

func TestManagerRegisterRejectsSuffixCollision(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "a", `
name: a
suffix: "-DUP"
enabled: true
`, `function handle_query(p){return "a:"+p;}`, "")
	writeBundle(t, root, "b", `
name: b
suffix: "-DUP"
enabled: true
`, `function handle_query(p){return "b:"+p;}`, "")

	store := testStore(t)
	mgr, err := Load(root, testLogger(), store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	reg := registry.New()
	mgr.RegisterInto(reg)

	h, ok := reg.Lookup(classify.Query{Kind: classify.KindPlugin, Tag: "DUP"})
	if !ok {
		t.Fatalf("expected one plugin to win the collision")
	}
	out, _ := h(context.Background(), classify.Query{Payload: "x"})
	if out != "a:x" {
		t.Fatalf("expected first-loaded plugin to win, got %q", out)
	}
}
