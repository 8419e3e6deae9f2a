package handlers

import (
	"context"
	"strings"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

// irrHosts maps each named routing registry suffix tag to its WHOIS host,
// per spec.md §6's registry list.
var irrHosts = map[string]string{
	"RADB":    "whois.radb.net",
	"ALTDB":   "whois.altdb.net",
	"AFRINIC": "whois.afrinic.net",
	"APNIC":   "whois.apnic.net",
	"ARIN":    "whois.arin.net",
	"BELL":    "whois.in.bell.ca",
	"JPIRR":   "whois.nic.ad.jp",
	"LACNIC":  "whois.lacnic.net",
	"LEVEL3":  "whois.level3.net",
	"NTTCOM":  "whois.bgp.ntt.net",
	"RIPE":    "whois.ripe.net",
	"TC":      "whois.twnic.tw",
}

// registerIRR wires the named-registry suffix tags (direct query to one
// fixed host, bypassing C5's referral-following root) and the IRR explorer
// aggregate view (one query fanned out to RADB, RIPE, ARIN, APNIC, AFRINIC
// and LACNIC, the way a human operator would cross-check a route object by
// hand).
func registerIRR(must func(classify.Kind, string, registry.Handler), d *Deps) {
	for tag, host := range irrHosts {
		tag, host := tag, host
		must(classify.KindIRRRegistry, tag, func(ctx context.Context, q classify.Query) (string, error) {
			if d.WhoisClient == nil {
				return errLine("upstream client not configured"), nil
			}
			resp, err := d.WhoisClient.Query(ctx, host, q.Payload)
			if err != nil {
				return errLine("%s query failed: %v", tag, err), nil
			}
			return resp, nil
		})
	}

	must(classify.KindSuffix, "IRR", func(ctx context.Context, q classify.Query) (string, error) {
		if d.WhoisClient == nil {
			return errLine("upstream client not configured"), nil
		}
		var b strings.Builder
		comment(&b, "IRR explorer for "+q.Payload)
		for _, tag := range []string{"RADB", "RIPE", "ARIN", "APNIC", "AFRINIC", "LACNIC"} {
			resp, err := d.WhoisClient.Query(ctx, irrHosts[tag], q.Payload)
			comment(&b, tag+":")
			if err != nil || strings.TrimSpace(resp) == "" {
				comment(&b, "  no object found")
				continue
			}
			for _, ln := range strings.Split(strings.TrimRight(resp, "\n"), "\n") {
				if strings.TrimSpace(ln) == "" || strings.HasPrefix(strings.TrimSpace(ln), "%") {
					continue
				}
				b.WriteString("  ")
				b.WriteString(ln)
				b.WriteString("\n")
			}
		}
		return b.String(), nil
	})
}
