package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/patch"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

// suffixHelp documents every built-in suffix tag, keyed upper-case. It
// backs both HELP's full listing and the SPEC_FULL-added per-tag
// "<payload>-DESC" lookup.
var suffixHelp = map[string]string{
	"EMAIL":       "abuse/contact email lookup for a domain or IP",
	"GEO":         "IP geolocation (city/country/ASN) via a public geo API",
	"RIRGEO":      "RIR-reported geofeed/country data for an IP or prefix",
	"BGPTOOL":     "bgp.tools-style ASN/prefix summary",
	"PREFIXES":    "announced prefixes for an ASN",
	"IRR":         "IRR explorer summary across RADB and the five RIR registries",
	"LG":          "looking-glass style route/path report",
	"RADB":        "query the RADB routing registry directly",
	"ALTDB":       "query the ALTDB routing registry directly",
	"AFRINIC":     "query the AFRINIC routing registry directly",
	"APNIC":       "query the APNIC routing registry directly",
	"ARIN":        "query the ARIN routing registry directly",
	"BELL":        "query the BELL routing registry directly",
	"JPIRR":       "query the JPIRR routing registry directly",
	"LACNIC":      "query the LACNIC routing registry directly",
	"LEVEL3":      "query the LEVEL3 routing registry directly",
	"NTTCOM":      "query the NTTCOM routing registry directly",
	"RIPE":        "query the RIPE routing registry directly",
	"TC":          "query the TC routing registry directly",
	"RPKI":        "RPKI ROA validity for <prefix>-AS<number>-RPKI",
	"MANRS":       "MANRS participation status for an ASN",
	"DNS":         "forward/reverse DNS records for a name or address",
	"TRACE":       "traceroute-style hop report",
	"TRACEROUTE":  "traceroute-style hop report (long form)",
	"SSL":         "TLS certificate summary for a hostname",
	"CRT":         "certificate-transparency log search for a hostname",
	"MC":          "Minecraft server status",
	"MINECRAFT":   "Minecraft server status (long form)",
	"MCU":         "Minecraft user profile lookup",
	"STEAM":       "Steam app metadata",
	"STEAMSEARCH": "Steam app search",
	"IMDB":        "IMDB title metadata",
	"IMDBSEARCH":  "IMDB title search",
	"CARGO":       "crates.io package metadata",
	"NPM":         "npm registry package metadata",
	"PYPI":        "PyPI package metadata",
	"AUR":         "Arch User Repository package metadata",
	"DEBIAN":      "Debian package metadata",
	"UBUNTU":      "Ubuntu package metadata",
	"NIXOS":       "NixOS package metadata",
	"OPENSUSE":    "openSUSE package metadata",
	"AOSC":        "AOSC OS package metadata",
	"EPEL":        "EPEL package metadata",
	"ALMA":        "AlmaLinux package metadata",
	"OPENWRT":     "OpenWrt package metadata",
	"MODRINTH":    "Modrinth mod/project metadata",
	"CURSEFORGE":  "CurseForge project metadata",
	"GITHUB":      "GitHub repository metadata",
	"WIKIPEDIA":   "Wikipedia article summary",
	"ACGC":        "anime/comic/game character lookup",
	"LYRIC":       "song lyric search (no payload, bare command)",
	"PIXIV":       "Pixiv artwork metadata",
	"MEAL":        "random meal recipe suggestion",
	"MEAL-CN":     "random Chinese meal recipe suggestion",
	"PEN":         "IANA Private Enterprise Number lookup",
	"ICP":         "China ICP filing lookup for a domain",
	"CFSTATUS":    "Cloudflare system status summary",
	"PEERINGDB":   "PeeringDB network/facility summary",
	"RDAP":        "RDAP lookup for a domain or IP",
	"DESC":        "usage line for a single suffix tag (this payload)",
}

const helpHeader = "% akaere whois gateway\n" +
	"% query a bare domain, IPv4/IPv6 address, CIDR, or ASN for a standard lookup\n" +
	"% append a suffix tag, e.g. \"1.1.1.1-GEO\" or \"AS4242420000-RPKI\"\n" +
	"% commands: HELP, UPDATE-PATCH, RELOAD-PATCH, <TAG>-DESC\n" +
	"%\n" +
	"% available suffix tags:\n"

func registerSpecial(must func(classify.Kind, string, registry.Handler), d *Deps) {
	must(classify.KindHelp, "", func(ctx context.Context, q classify.Query) (string, error) {
		return renderHelp(), nil
	})

	must(classify.KindUpdatePatch, "", func(ctx context.Context, q classify.Query) (string, error) {
		if d.Updater == nil {
			return errLine("patch updater not configured"), nil
		}
		report, err := d.Updater.Update(ctx, d.PatchIndex)
		if err != nil {
			return errLine("patch update failed: %v", err), nil
		}
		return report, nil
	})

	must(classify.KindReloadPatch, "", func(ctx context.Context, q classify.Query) (string, error) {
		if d.Patch == nil {
			return errLine("patch engine not configured"), nil
		}
		files, err := patch.LoadLocalDir(d.PatchDir, d.Log)
		if err != nil {
			return errLine("reload failed: %v", err), nil
		}
		d.Patch.Swap(files)
		return fmt.Sprintf("%% reloaded %d patch file(s) from %s\n", len(files), d.PatchDir), nil
	})

	must(classify.KindSuffix, "DESC", func(ctx context.Context, q classify.Query) (string, error) {
		tag := strings.ToUpper(strings.TrimSpace(q.Payload))
		desc, ok := suffixHelp[tag]
		if !ok {
			return errLine("no such tag %q", tag), nil
		}
		return "% -" + tag + ": " + desc + "\n", nil
	})
}

func renderHelp() string {
	var b strings.Builder
	b.WriteString(helpHeader)
	tags := make([]string, 0, len(suffixHelp))
	for tag := range suffixHelp {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		b.WriteString("%   -")
		b.WriteString(tag)
		b.WriteString(": ")
		b.WriteString(suffixHelp[tag])
		b.WriteString("\n")
	}
	return b.String()
}
