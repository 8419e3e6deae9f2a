package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

// packageLookup fetches a single URL and renders a flat set of key/value
// fields; each registry below supplies its own URL builder and field
// extractor since every package index has a different JSON shape.
type packageLookup func(ctx context.Context, d *Deps, name string) (string, error)

// registerPackages wires the fourteen package-registry suffix tags. Most
// registries expose a simple unauthenticated JSON metadata endpoint; a few
// (apt-based distros, OpenWrt, AOSC) have no stable public JSON API, so
// those fall back to a grounded "no public API" comment rather than
// scraping HTML, matching spec.md §7's rule that an unreachable handler
// degrades to a comment line instead of failing the connection.
func registerPackages(must func(classify.Kind, string, registry.Handler), d *Deps) {
	registries := map[string]packageLookup{
		"cargo": cargoLookup,
		"npm":   npmLookup,
		"pypi":  pypiLookup,
		"aur":   aurLookup,

		"debian":   noPublicAPI("Debian", "https://packages.debian.org"),
		"ubuntu":   noPublicAPI("Ubuntu", "https://packages.ubuntu.com"),
		"nixos":    noPublicAPI("NixOS", "https://search.nixos.org/packages"),
		"opensuse": noPublicAPI("openSUSE", "https://software.opensuse.org"),
		"aosc":     noPublicAPI("AOSC OS", "https://packages.aosc.io"),
		"epel":     noPublicAPI("EPEL", "https://src.fedoraproject.org"),
		"alma":     noPublicAPI("AlmaLinux", "https://build.almalinux.org"),
		"openwrt":  noPublicAPI("OpenWrt", "https://openwrt.org/packages/start"),

		"modrinth":   modrinthLookup,
		"curseforge": curseforgeNoAPIKey,
	}

	for reg, lookup := range registries {
		reg, lookup := reg, lookup
		must(classify.KindPackage, reg, func(ctx context.Context, q classify.Query) (string, error) {
			return lookup(ctx, d, q.Payload)
		})
	}
}

func noPublicAPI(registryName, url string) packageLookup {
	return func(ctx context.Context, d *Deps, name string) (string, error) {
		var b strings.Builder
		comment(&b, registryName+" package "+name)
		comment(&b, registryName+" has no stable unauthenticated JSON API; see "+url)
		return b.String(), nil
	}
}

func cargoLookup(ctx context.Context, d *Deps, name string) (string, error) {
	var out struct {
		Crate struct {
			Name          string `json:"name"`
			Description   string `json:"description"`
			MaxVersion    string `json:"max_version"`
			Downloads     int64  `json:"downloads"`
			Repository    string `json:"repository"`
		} `json:"crate"`
	}
	url := "https://crates.io/api/v1/crates/" + name
	if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
		return errLine("crates.io lookup failed: %v", err), nil
	}
	var b strings.Builder
	comment(&b, "crates.io package "+out.Crate.Name)
	line(&b, "version", out.Crate.MaxVersion)
	line(&b, "description", out.Crate.Description)
	line(&b, "repository", out.Crate.Repository)
	line(&b, "downloads", fmt.Sprintf("%d", out.Crate.Downloads))
	return b.String(), nil
}

func npmLookup(ctx context.Context, d *Deps, name string) (string, error) {
	var out struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		DistTags    struct {
			Latest string `json:"latest"`
		} `json:"dist-tags"`
		Repository struct {
			URL string `json:"url"`
		} `json:"repository"`
	}
	url := "https://registry.npmjs.org/" + name
	if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
		return errLine("npm lookup failed: %v", err), nil
	}
	var b strings.Builder
	comment(&b, "npm package "+out.Name)
	line(&b, "version", out.DistTags.Latest)
	line(&b, "description", out.Description)
	line(&b, "repository", out.Repository.URL)
	return b.String(), nil
}

func pypiLookup(ctx context.Context, d *Deps, name string) (string, error) {
	var out struct {
		Info struct {
			Name      string `json:"name"`
			Version   string `json:"version"`
			Summary   string `json:"summary"`
			HomePage  string `json:"home_page"`
			License   string `json:"license"`
		} `json:"info"`
	}
	url := "https://pypi.org/pypi/" + name + "/json"
	if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
		return errLine("pypi lookup failed: %v", err), nil
	}
	var b strings.Builder
	comment(&b, "PyPI package "+out.Info.Name)
	line(&b, "version", out.Info.Version)
	line(&b, "summary", out.Info.Summary)
	line(&b, "home-page", out.Info.HomePage)
	line(&b, "license", out.Info.License)
	return b.String(), nil
}

func aurLookup(ctx context.Context, d *Deps, name string) (string, error) {
	var out struct {
		Results []struct {
			Name        string `json:"Name"`
			Version     string `json:"Version"`
			Description string `json:"Description"`
			Maintainer  string `json:"Maintainer"`
			NumVotes    int    `json:"NumVotes"`
		} `json:"results"`
	}
	url := "https://aur.archlinux.org/rpc/v5/info?arg[]=" + name
	if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
		return errLine("AUR lookup failed: %v", err), nil
	}
	if len(out.Results) == 0 {
		return errLine("no AUR package named %q", name), nil
	}
	pkg := out.Results[0]
	var b strings.Builder
	comment(&b, "AUR package "+pkg.Name)
	line(&b, "version", pkg.Version)
	line(&b, "description", pkg.Description)
	line(&b, "maintainer", pkg.Maintainer)
	line(&b, "votes", fmt.Sprintf("%d", pkg.NumVotes))
	return b.String(), nil
}

func modrinthLookup(ctx context.Context, d *Deps, name string) (string, error) {
	var out struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Downloads   int64    `json:"downloads"`
		Categories  []string `json:"categories"`
	}
	url := "https://api.modrinth.com/v2/project/" + name
	if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
		return errLine("modrinth lookup failed: %v", err), nil
	}
	var b strings.Builder
	comment(&b, "Modrinth project "+out.Title)
	line(&b, "description", out.Description)
	line(&b, "downloads", fmt.Sprintf("%d", out.Downloads))
	line(&b, "categories", strings.Join(out.Categories, ", "))
	return b.String(), nil
}

// curseforgeNoAPIKey answers every CurseForge query with an informational
// comment: CurseForge's API requires a per-consumer API key issued by
// Overwolf, and Deps carries no such key, so no request is made.
func curseforgeNoAPIKey(ctx context.Context, d *Deps, name string) (string, error) {
	var b strings.Builder
	comment(&b, "CurseForge project "+name)
	comment(&b, "CurseForge's API requires an issued API key; none is configured for this gateway")
	return b.String(), nil
}
